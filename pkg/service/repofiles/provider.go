package repofiles

import (
	"context"
	"encoding/base64"

	"github.com/google/go-github/v74/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/upstratum/gitshelf/pkg/domain/model/resource"
	"github.com/upstratum/gitshelf/pkg/utils/logging"
)

// Provider enumerates the files of one GitHub repository and serves their
// contents on demand. All identity fields are fixed at construction.
type Provider struct {
	client  *github.Client
	rawRepo string
	coord   resource.Coordinate
	valid   bool
}

func New(client *github.Client, repo, branch string) *Provider {
	x := &Provider{
		client:  client,
		rawRepo: repo,
	}

	coord, err := resource.ParseRepository(repo)
	if err != nil {
		return x
	}

	coord.Branch = branch
	x.coord = coord
	x.valid = true

	return x
}

// Coordinate returns the resolved repository coordinate. The zero value is
// returned when the configured repository string was malformed.
func (x *Provider) Coordinate() resource.Coordinate {
	return x.coord
}

// Enumerate lists every blob in the repository tree and returns one
// descriptor per file. It never fails: a malformed repository string or any
// remote failure is logged and yields an empty result, so the host server
// can still start with zero resources.
func (x *Provider) Enumerate(ctx context.Context) []*resource.Descriptor {
	logger := logging.From(ctx)

	if !x.valid {
		logger.Warn("repository is not configured in 'owner/name' format, no resources will be served",
			"repository", x.rawRepo)
		return nil
	}

	logger.Info("enumerating repository files",
		"repository", x.coord.String(), "branch", x.coord.Branch)

	descriptors, err := x.listTree(ctx)
	if err != nil {
		logger.Error("failed to list repository tree, no resources will be served",
			"repository", x.coord.String(), logging.ErrAttr(err))
		return nil
	}

	if len(descriptors) == 0 {
		logger.Warn("repository tree contains no files", "repository", x.coord.String())
		return nil
	}

	logger.Info("repository files enumerated",
		"repository", x.coord.String(), "count", len(descriptors))

	return descriptors
}

func (x *Provider) listTree(ctx context.Context) ([]*resource.Descriptor, error) {
	branch := x.coord.Branch
	if branch == "" {
		repo, _, err := x.client.Repositories.Get(ctx, x.coord.Owner, x.coord.Repo)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to get repository metadata",
				goerr.V("repository", x.coord.String()))
		}
		branch = repo.GetDefaultBranch()
	}

	ref, _, err := x.client.Git.GetRef(ctx, x.coord.Owner, x.coord.Repo, "heads/"+branch)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve branch",
			goerr.V("repository", x.coord.String()),
			goerr.V("branch", branch))
	}

	commit, _, err := x.client.Git.GetCommit(ctx, x.coord.Owner, x.coord.Repo, ref.GetObject().GetSHA())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve commit",
			goerr.V("repository", x.coord.String()),
			goerr.V("sha", ref.GetObject().GetSHA()))
	}

	// Single recursive call; the tree is not walked entry by entry.
	tree, _, err := x.client.Git.GetTree(ctx, x.coord.Owner, x.coord.Repo, commit.GetTree().GetSHA(), true)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get repository tree",
			goerr.V("repository", x.coord.String()),
			goerr.V("tree_sha", commit.GetTree().GetSHA()))
	}

	var descriptors []*resource.Descriptor
	for _, node := range tree.Entries {
		if node.GetType() != "blob" || node.GetPath() == "" {
			continue
		}

		entry := resource.NewTreeEntry(node.GetPath(), int64(node.GetSize()))
		descriptors = append(descriptors, resource.NewDescriptor(entry, MIMETypeOf(entry.Name)))
	}

	return descriptors, nil
}

// FetchContent retrieves and decodes the body of one file. Unlike
// Enumerate, failures here propagate: the error belongs to the single
// request that triggered the fetch. requestedURI is carried into the result
// verbatim.
func (x *Provider) FetchContent(ctx context.Context, desc *resource.Descriptor, requestedURI string) (*resource.Content, error) {
	opts := &github.RepositoryContentGetOptions{}
	if x.coord.Branch != "" {
		opts.Ref = x.coord.Branch
	}

	fileContent, _, _, err := x.client.Repositories.GetContents(ctx, x.coord.Owner, x.coord.Repo, desc.Name, opts)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch file content",
			goerr.V("repository", x.coord.String()),
			goerr.V("path", desc.Name))
	}

	if fileContent == nil {
		return nil, goerr.New("path does not resolve to a single file",
			goerr.V("repository", x.coord.String()),
			goerr.V("path", desc.Name))
	}

	// GitHub omits the body for files over 1MB (encoding "none"); raising
	// beats handing back an empty record that looks like an empty file.
	if fileContent.Content == nil {
		return nil, goerr.New("file content is not inlined in the response",
			goerr.V("repository", x.coord.String()),
			goerr.V("path", desc.Name),
			goerr.V("size", fileContent.GetSize()))
	}

	decoded, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode file content",
			goerr.V("path", desc.Name))
	}
	text := string(decoded)

	return &resource.Content{
		URI:         requestedURI,
		Text:        text,
		MIMEType:    desc.MIMEType,
		Title:       desc.Title,
		Description: desc.Description,
		Size:        desc.Size,
	}, nil
}
