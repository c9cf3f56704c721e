package cli

import (
	"github.com/spf13/cobra"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

// NewFragmentsCmd manages the fragment library.  Locally this needs the
// database section of the config; remotely the server's library is used.
func NewFragmentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "fragments",
		Aliases: []string{"fragment", "frag"},
		Short:   "Manage the fragment library",
	}
	cmd.AddCommand(
		newFragmentsListCmd(),
		newFragmentsGetCmd(),
		newFragmentsCreateCmd(),
		newFragmentsDeleteCmd(),
	)
	return cmd
}

func newFragmentsListCmd() *cobra.Command {
	var page, pageSize int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List library fragments by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if page < 1 {
				return errors.InvalidParam("--page must be at least 1")
			}
			if pageSize < 1 || pageSize > 500 {
				return errors.InvalidParam("--page-size must be between 1 and 500")
			}
			list, err := tk.ListFragments(ctx, page, pageSize)
			if err != nil {
				return err
			}
			return PrintResult(cmd, fragmentListView{list})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "fragments per page (1-500)")
	return cmd
}

func newFragmentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id|name>",
		Short: "Show one fragment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			f, err := tk.GetFragment(ctx, args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, fragmentView{f})
		},
	}
}

func newFragmentsCreateCmd() *cobra.Command {
	var name, notation string
	af := &attachFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a fragment to the library",
		Example: `  ctk fragments create --name methyl --notation 'C[*] |$;_R1$|' \
      --attach 'R1:H:[H][*] |$;_R1$|'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			atts, err := af.load()
			if err != nil {
				return err
			}
			f, err := tk.CreateFragment(ctx, &molecule.FragmentRequest{Name: name, Notation: notation, Attachments: atts})
			if err != nil {
				return err
			}
			return PrintResult(cmd, fragmentView{f})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "unique fragment name")
	cmd.Flags().StringVar(&notation, "notation", "", "fragment notation with R-group placeholders")
	af.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("notation")
	return cmd
}

func newFragmentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id|name>",
		Aliases: []string{"rm"},
		Short:   "Remove a fragment from the library",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			if err := tk.DeleteFragment(ctx, args[0]); err != nil {
				return err
			}
			PrintSuccess(cmd, "deleted fragment "+args[0])
			return nil
		},
	}
}
