package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/upstratum/gitshelf/pkg/cli/config"
	"github.com/upstratum/gitshelf/pkg/service/repofiles"
	"github.com/urfave/cli/v3"
)

func cmdList() *cli.Command {
	var githubCfg config.GitHub

	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Enumerate repository files and print the resources without serving",
		Flags:   githubCfg.Flags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			client, err := githubCfg.Configure(ctx)
			if err != nil {
				return err
			}

			provider := repofiles.New(client, githubCfg.Repository, githubCfg.Branch)
			descriptors := provider.Enumerate(ctx)

			for _, desc := range descriptors {
				fmt.Fprintf(os.Stdout, "%s\t%s\t%d\n", desc.URI, desc.MIMEType, desc.Size)
			}
			fmt.Fprintf(os.Stdout, "total: %d resources\n", len(descriptors))

			return nil
		},
	}
}
