package repofiles_test

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/migueleliasweb/go-github-mock/src/mock"
	"github.com/upstratum/gitshelf/pkg/domain/model/resource"
	"github.com/upstratum/gitshelf/pkg/service/repofiles"
)

func newTreeClient(entries []*github.TreeEntry) *github.Client {
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposByOwnerByRepo,
			github.Repository{
				DefaultBranch: github.Ptr("main"),
			},
		),
		mock.WithRequestMatch(
			mock.GetReposGitRefByOwnerByRepoByRef,
			github.Reference{
				Object: &github.GitObject{SHA: github.Ptr("commit-sha")},
			},
		),
		mock.WithRequestMatch(
			mock.GetReposGitCommitsByOwnerByRepoByCommitSha,
			github.Commit{
				Tree: &github.Tree{SHA: github.Ptr("tree-sha")},
			},
		),
		mock.WithRequestMatch(
			mock.GetReposGitTreesByOwnerByRepoByTreeSha,
			github.Tree{Entries: entries},
		),
	)

	return github.NewClient(mockedHTTPClient)
}

func TestEnumerate(t *testing.T) {
	client := newTreeClient([]*github.TreeEntry{
		{Path: github.Ptr("README.md"), Type: github.Ptr("blob"), Size: github.Ptr(100)},
		{Path: github.Ptr("src"), Type: github.Ptr("tree")},
		{Path: github.Ptr("src/main.go"), Type: github.Ptr("blob"), Size: github.Ptr(256)},
		{Path: github.Ptr("vendor/dep"), Type: github.Ptr("commit")},
		{Path: github.Ptr("assets/logo"), Type: github.Ptr("blob")},
	})

	provider := repofiles.New(client, "octocat/hello-world", "")
	descriptors := provider.Enumerate(context.Background())

	gt.A(t, descriptors).Length(3)

	// Order follows the remote listing
	gt.S(t, descriptors[0].Name).Equal("README.md")
	gt.S(t, descriptors[0].URI).Equal("github://file/README.md")
	gt.S(t, descriptors[0].Title).Equal("README.md")
	gt.S(t, descriptors[0].MIMEType).Equal("text/markdown")
	gt.Number(t, descriptors[0].Size).Equal(100)

	gt.S(t, descriptors[1].Name).Equal("src/main.go")
	gt.S(t, descriptors[1].URI).Equal("github://file/src/main.go")
	gt.S(t, descriptors[1].Title).Equal("main.go")
	gt.S(t, descriptors[1].MIMEType).Equal("text/x-go")

	// Unreported size defaults to zero, unknown extension to binary
	gt.S(t, descriptors[2].Name).Equal("assets/logo")
	gt.Number(t, descriptors[2].Size).Equal(0)
	gt.S(t, descriptors[2].MIMEType).Equal("application/octet-stream")
}

func TestEnumerateExplicitBranch(t *testing.T) {
	// Only the ref/commit/tree endpoints are mocked: resolving the default
	// branch would fail, proving the metadata call is skipped when a branch
	// is configured.
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposGitRefByOwnerByRepoByRef,
			github.Reference{
				Object: &github.GitObject{SHA: github.Ptr("commit-sha")},
			},
		),
		mock.WithRequestMatch(
			mock.GetReposGitCommitsByOwnerByRepoByCommitSha,
			github.Commit{
				Tree: &github.Tree{SHA: github.Ptr("tree-sha")},
			},
		),
		mock.WithRequestMatch(
			mock.GetReposGitTreesByOwnerByRepoByTreeSha,
			github.Tree{Entries: []*github.TreeEntry{
				{Path: github.Ptr("main.ts"), Type: github.Ptr("blob"), Size: github.Ptr(10)},
			}},
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "develop")
	descriptors := provider.Enumerate(context.Background())

	gt.A(t, descriptors).Length(1)
	gt.S(t, descriptors[0].MIMEType).Equal("text/typescript")
}

func TestEnumerateMalformedRepository(t *testing.T) {
	for _, repo := range []string{"", "no-separator", "/name", "owner/", "a/b/c"} {
		t.Run(repo, func(t *testing.T) {
			provider := repofiles.New(github.NewClient(nil), repo, "")
			gt.A(t, provider.Enumerate(context.Background())).Length(0)
		})
	}
}

func TestEnumerateRemoteFailure(t *testing.T) {
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatchHandler(
			mock.GetReposByOwnerByRepo,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mock.WriteError(w, http.StatusNotFound, "repository not found")
			}),
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/gone", "")
	gt.A(t, provider.Enumerate(context.Background())).Length(0)
}

func TestEnumerateEmptyTree(t *testing.T) {
	client := newTreeClient([]*github.TreeEntry{
		{Path: github.Ptr("src"), Type: github.Ptr("tree")},
	})

	provider := repofiles.New(client, "octocat/hello-world", "")
	gt.A(t, provider.Enumerate(context.Background())).Length(0)
}

func TestFetchContent(t *testing.T) {
	text := "export const answer = 42;\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(text))

	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposContentsByOwnerByRepoByPath,
			github.RepositoryContent{
				Name:     github.Ptr("answer.ts"),
				Path:     github.Ptr("src/answer.ts"),
				Size:     github.Ptr(len(text)),
				Content:  github.Ptr(encoded),
				Type:     github.Ptr("file"),
				Encoding: github.Ptr("base64"),
			},
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "main")
	desc := resource.NewDescriptor(resource.NewTreeEntry("src/answer.ts", int64(len(text))), "text/typescript")

	content, err := provider.FetchContent(context.Background(), desc, desc.URI)
	gt.NoError(t, err)
	gt.S(t, content.URI).Equal("github://file/src/answer.ts")
	gt.S(t, content.Text).Equal(text)
	gt.S(t, content.MIMEType).Equal("text/typescript")
	gt.S(t, content.Title).Equal("answer.ts")
	gt.Number(t, content.Size).Equal(int64(len(text)))
}

func TestFetchContentDirectory(t *testing.T) {
	// A directory path returns a listing, not a single file
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposContentsByOwnerByRepoByPath,
			[]*github.RepositoryContent{
				{Name: github.Ptr("main.go"), Path: github.Ptr("src/main.go"), Type: github.Ptr("file")},
			},
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "")
	desc := resource.NewDescriptor(resource.NewTreeEntry("src", 0), repofiles.DefaultMIMEType)

	content, err := provider.FetchContent(context.Background(), desc, desc.URI)
	gt.Error(t, err)
	gt.Nil(t, content)
	gt.V(t, goerr.Values(err)["path"]).Equal("src")
}

func TestFetchContentNotInlined(t *testing.T) {
	// Bodies over 1MB come back with encoding "none" and no content field
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatch(
			mock.GetReposContentsByOwnerByRepoByPath,
			github.RepositoryContent{
				Name:     github.Ptr("huge.bin"),
				Path:     github.Ptr("huge.bin"),
				Size:     github.Ptr(2 * 1024 * 1024),
				Type:     github.Ptr("file"),
				Encoding: github.Ptr("none"),
			},
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "")
	desc := resource.NewDescriptor(resource.NewTreeEntry("huge.bin", 2*1024*1024), repofiles.DefaultMIMEType)

	content, err := provider.FetchContent(context.Background(), desc, desc.URI)
	gt.Error(t, err)
	gt.Nil(t, content)
	gt.V(t, goerr.Values(err)["path"]).Equal("huge.bin")
}

func TestFetchContentRemoteFailure(t *testing.T) {
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatchHandler(
			mock.GetReposContentsByOwnerByRepoByPath,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				mock.WriteError(w, http.StatusNotFound, "no such file")
			}),
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "")
	desc := resource.NewDescriptor(resource.NewTreeEntry("missing.txt", 0), "text/plain")

	_, err := provider.FetchContent(context.Background(), desc, desc.URI)
	gt.Error(t, err)
	gt.V(t, goerr.Values(err)["path"]).Equal("missing.txt")
}

func TestFetchContentConcurrent(t *testing.T) {
	text := "hello\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(text))

	// One path succeeds while the other fails; both requests run at once
	mockedHTTPClient := mock.NewMockedHTTPClient(
		mock.WithRequestMatchHandler(
			mock.GetReposContentsByOwnerByRepoByPath,
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if strings.Contains(r.URL.Path, "missing.txt") {
					mock.WriteError(w, http.StatusNotFound, "no such file")
					return
				}
				_, _ = w.Write(mock.MustMarshal(github.RepositoryContent{
					Name:     github.Ptr("hello.txt"),
					Path:     github.Ptr("hello.txt"),
					Content:  github.Ptr(encoded),
					Type:     github.Ptr("file"),
					Encoding: github.Ptr("base64"),
				}))
			}),
		),
	)

	provider := repofiles.New(github.NewClient(mockedHTTPClient), "octocat/hello-world", "")
	okDesc := resource.NewDescriptor(resource.NewTreeEntry("hello.txt", 6), "text/plain")
	ngDesc := resource.NewDescriptor(resource.NewTreeEntry("missing.txt", 0), "text/plain")

	var wg sync.WaitGroup
	var okContent *resource.Content
	var okErr, ngErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		okContent, okErr = provider.FetchContent(context.Background(), okDesc, okDesc.URI)
	}()
	go func() {
		defer wg.Done()
		_, ngErr = provider.FetchContent(context.Background(), ngDesc, ngDesc.URI)
	}()
	wg.Wait()

	gt.NoError(t, okErr)
	gt.S(t, okContent.Text).Equal(text)
	gt.Error(t, ngErr)
}
