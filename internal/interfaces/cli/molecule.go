package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ClairePA/ChemistryToolkit/pkg/errors"
	"github.com/ClairePA/ChemistryToolkit/pkg/types/molecule"
)

// attachFlags are the attachment options shared by the notation commands.
type attachFlags struct {
	file  string
	items []string
}

func (a *attachFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.file, "attachments", "", "JSON file with an array of attachment templates")
	cmd.Flags().StringArrayVar(&a.items, "attach", nil, `attachment template LABEL:CAP:NOTATION, e.g. "R1:OH:O[*] |$;_R1$|" (repeatable)`)
}

func (a *attachFlags) load() ([]molecule.Attachment, error) {
	return loadAttachments(a.file, a.items)
}

// notationRequest reads the single notation argument plus attachment flags.
func notationRequest(cmd *cobra.Command, args []string, af *attachFlags) (*molecule.NotationRequest, error) {
	notation, err := readSingle(args, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	atts, err := af.load()
	if err != nil {
		return nil, err
	}
	return &molecule.NotationRequest{Notation: notation, Attachments: atts}, nil
}

func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [notation...]",
		Short: "Check whether notations parse",
		Long: "Validate each notation given as an argument, or one per line on stdin when\n" +
			"no argument or \"-\" is given.  Exits with status 2 when any notation is invalid.",
		Example: "  ctk validate CCO 'C1CC'\n  ctk validate - < notations.txt",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			notations, err := readNotations(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			view := make(validateView, 0, len(notations))
			for _, n := range notations {
				res, err := tk.Validate(ctx, &molecule.NotationRequest{Notation: n})
				if err != nil {
					return err
				}
				view = append(view, res)
			}
			if err := PrintResult(cmd, view); err != nil {
				return err
			}
			if bad := view.invalid(); bad > 0 {
				return errors.Newf(errors.ErrCodeNotation, "%d of %d notations are invalid", bad, len(view))
			}
			return nil
		},
	}
}

func NewCanonicalizeCmd() *cobra.Command {
	af := &attachFlags{}
	cmd := &cobra.Command{
		Use:     "canonicalize <notation>",
		Aliases: []string{"canon"},
		Short:   "Print the canonical notation of a molecule",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			req, err := notationRequest(cmd, args, af)
			if err != nil {
				return err
			}
			res, err := tk.Canonicalize(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, notationView{res})
		},
	}
	af.register(cmd)
	return cmd
}

func NewInfoCmd() *cobra.Command {
	af := &attachFlags{}
	cmd := &cobra.Command{
		Use:   "info <notation>",
		Short: "Show formula, weights, counts and open R-group sites",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			req, err := notationRequest(cmd, args, af)
			if err != nil {
				return err
			}
			res, err := tk.Info(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, infoView{res})
		},
	}
	af.register(cmd)
	return cmd
}

func NewCapCmd() *cobra.Command {
	af := &attachFlags{}
	cmd := &cobra.Command{
		Use:   "cap <notation>",
		Short: "Replace every open R-group site with its cap group",
		Long: "Cap each remaining R-group placeholder using the matching attachment\n" +
			"template.  Sites without a template stay open.",
		Example: `  ctk cap 'C[*] |$;_R1$|' --attach 'R1:OH:O[*] |$;_R1$|'`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			req, err := notationRequest(cmd, args, af)
			if err != nil {
				return err
			}
			res, err := tk.Cap(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, notationView{res})
		},
	}
	af.register(cmd)
	return cmd
}

type convertOptions struct {
	to      string
	file    string
	outFile string
	attach  attachFlags
}

func NewConvertCmd() *cobra.Command {
	o := &convertOptions{}
	cmd := &cobra.Command{
		Use:   "convert [notation]",
		Short: "Convert between line notation and MDL molfile",
		Long: "With --to molfile, convert a notation argument to a V2000 molfile.\n" +
			"With --to smiles, read a molfile from --file (or stdin) and print its\n" +
			"canonical notation.",
		Example: "  ctk convert 'OCC' --to molfile -w ethanol.mol\n  ctk convert --to smiles -f ethanol.mol",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			atts, err := o.attach.load()
			if err != nil {
				return err
			}

			switch strings.ToLower(o.to) {
			case "molfile", "mol":
				var notation string
				if o.file != "" {
					text, err := readText(o.file, cmd.InOrStdin())
					if err != nil {
						return err
					}
					notation = strings.TrimSpace(text)
				} else if notation, err = readSingle(args, cmd.InOrStdin()); err != nil {
					return err
				}
				res, err := tk.ToMolfile(ctx, &molecule.NotationRequest{Notation: notation, Attachments: atts})
				if err != nil {
					return err
				}
				return o.emit(cmd, res, res.Molfile)

			case "smiles", "smi", "notation":
				if len(args) > 0 {
					return errors.InvalidParam("molfile input is read from --file or stdin, not arguments")
				}
				text, err := readText(o.file, cmd.InOrStdin())
				if err != nil {
					return err
				}
				res, err := tk.FromMolfile(ctx, &molecule.MolfileRequest{Molfile: text, Attachments: atts})
				if err != nil {
					return err
				}
				return o.emit(cmd, res, res.Notation+"\n")

			default:
				return errors.InvalidParam("--to must be molfile or smiles").WithDetail(o.to)
			}
		},
	}
	cmd.Flags().StringVar(&o.to, "to", "molfile", "target format: molfile or smiles")
	cmd.Flags().StringVarP(&o.file, "file", "f", "", "read input from file (\"-\" for stdin)")
	cmd.Flags().StringVarP(&o.outFile, "write", "w", "", "write the converted text to this file")
	o.attach.register(cmd)
	return cmd
}

// emit writes text to --write when set; otherwise prints res as JSON or the
// plain converted text.  Relative --write paths land in toolkit.output_dir.
func (o *convertOptions) emit(cmd *cobra.Command, res interface{}, text string) error {
	cliCtx, _ := GetCLIContext(cmd)
	if o.outFile != "" {
		path := o.outFile
		if !filepath.IsAbs(path) && cliCtx != nil && cliCtx.Config != nil && cliCtx.Config.Toolkit.OutputDir != "" {
			path = filepath.Join(cliCtx.Config.Toolkit.OutputDir, path)
		}
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to write output file").WithDetail(path)
		}
		PrintSuccess(cmd, "wrote "+path)
		return nil
	}
	if cliCtx != nil && cliCtx.OutputFormat == "json" {
		return printJSON(cmd, res)
	}
	fmt.Fprint(cmd.OutOrStdout(), text)
	return nil
}

type mergeOptions struct {
	left, leftFragment   string
	right, rightFragment string
	leftSite, rightSite  int
	leftAttach           []string
	rightAttach          []string
	capAfter             bool
}

func NewMergeCmd() *cobra.Command {
	o := &mergeOptions{}
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Join two molecules at R-group sites",
		Long: "Merge joins the left molecule at --left-site with the right molecule at\n" +
			"--right-site.  Each side is an inline notation or a library fragment.\n" +
			"Without a right molecule the two sites of the left molecule are joined\n" +
			"to each other, closing a ring.",
		Example: "  ctk merge --left 'O[*] |$;_R1$|' --left-site 1 --right 'C[*] |$;_R2$|' --right-site 2\n" +
			"  ctk merge --left-fragment Ala --left-site 2 --right-fragment Gly --right-site 1 --cap",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()

			req, err := o.request()
			if err != nil {
				return err
			}
			res, err := tk.Merge(ctx, req)
			if err != nil {
				return err
			}
			return PrintResult(cmd, mergeView{res})
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.left, "left", "", "left notation")
	f.StringVar(&o.leftFragment, "left-fragment", "", "left library fragment (id or name)")
	f.IntVar(&o.leftSite, "left-site", 0, "R-group index on the left molecule")
	f.StringVar(&o.right, "right", "", "right notation")
	f.StringVar(&o.rightFragment, "right-fragment", "", "right library fragment (id or name)")
	f.IntVar(&o.rightSite, "right-site", 0, "R-group index on the right molecule")
	f.BoolVar(&o.capAfter, "cap", false, "cap the remaining open sites of the result")
	f.StringArrayVar(&o.leftAttach, "left-attach", nil, "attachment template LABEL:CAP:NOTATION for the left molecule (repeatable)")
	f.StringArrayVar(&o.rightAttach, "right-attach", nil, "attachment template LABEL:CAP:NOTATION for the right molecule (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("left", "left-fragment")
	cmd.MarkFlagsMutuallyExclusive("right", "right-fragment")
	_ = cmd.MarkFlagRequired("left-site")
	_ = cmd.MarkFlagRequired("right-site")
	return cmd
}

func (o *mergeOptions) request() (*molecule.MergeRequest, error) {
	if o.left == "" && o.leftFragment == "" {
		return nil, errors.InvalidParam("one of --left or --left-fragment is required")
	}
	if o.leftSite <= 0 || o.rightSite <= 0 {
		return nil, errors.InvalidParam("site indices must be positive")
	}
	leftAtts, err := loadAttachments("", o.leftAttach)
	if err != nil {
		return nil, err
	}
	rightAtts, err := loadAttachments("", o.rightAttach)
	if err != nil {
		return nil, err
	}
	return &molecule.MergeRequest{
		Left: molecule.MergeOperand{
			Notation: o.left, Fragment: o.leftFragment, Site: o.leftSite, Attachments: leftAtts,
		},
		Right: molecule.MergeOperand{
			Notation: o.right, Fragment: o.rightFragment, Site: o.rightSite, Attachments: rightAtts,
		},
		CapAfter: o.capAfter,
	}, nil
}

func NewEngineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "engine",
		Short: "Print the chemistry engine in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel, tk, err := commandContext(cmd)
			if err != nil {
				return err
			}
			defer cancel()
			name, err := tk.Engine(ctx)
			if err != nil {
				return err
			}
			return PrintResult(cmd, name)
		},
	}
}
