// File: cmd/study.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagestudy/internal/browser/session"
	"github.com/xkilldash9x/pagestudy/internal/config"
	"github.com/xkilldash9x/pagestudy/internal/observability"
	"github.com/xkilldash9x/pagestudy/internal/study"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// pageFlags selects where the studied page comes from.
type pageFlags struct {
	file   string
	url    string
	output string
}

func (p *pageFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&p.file, "file", "f", "", "study a saved HTML file")
	cmd.Flags().StringVarP(&p.url, "url", "u", "", "study a live page loaded in Chrome")
	cmd.Flags().StringVarP(&p.output, "output", "o", "text", "output format (text or json)")
	cmd.Flags().Bool("headless", true, "run Chrome without a window when --url is used")
	cmd.MarkFlagsMutuallyExclusive("file", "url")
	cmd.MarkFlagsOneRequired("file", "url")
}

func (p *pageFlags) validate() error {
	switch p.output {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text or json)", p.output)
	}
}

// applyFlagOverrides copies the flags the user set onto cfg. Flags left at
// their defaults do not override the config file or the environment.
func applyFlagOverrides(cmd *cobra.Command, cfg config.Interface) error {
	flags := cmd.Flags()
	if flags.Changed("css-paths") {
		cssPaths, err := flags.GetBool("css-paths")
		if err != nil {
			return err
		}
		cfg.SetStudyCSSPaths(cssPaths)
	}
	if flags.Changed("headless") {
		headless, err := flags.GetBool("headless")
		if err != nil {
			return err
		}
		cfg.SetBrowserHeadless(headless)
	}
	return nil
}

// studiedPage is a cache loaded with the requested page, plus the browser
// session behind it when the page is live.
type studiedPage struct {
	cache   *study.Cache
	session *session.Session
}

func (p *studiedPage) Close() {
	if p.session != nil {
		_ = p.session.Close()
	}
}

// openPage studies the page named by flags.
func openPage(ctx context.Context, cfg config.Interface, flags *pageFlags, logger *zap.Logger) (*studiedPage, error) {
	cache := study.New(logger, study.WithCSSPaths(cfg.Study().CSSPaths))
	keep := cfg.Study().KeepClean

	if flags.file != "" {
		f, err := os.Open(flags.file)
		if err != nil {
			return nil, fmt.Errorf("failed to open page: %w", err)
		}
		defer f.Close()

		if err := cache.Study(f, keep); err != nil {
			return nil, fmt.Errorf("failed to study %s: %w", flags.file, err)
		}
		return &studiedPage{cache: cache}, nil
	}

	s, err := session.NewSession(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, err
	}
	if err := s.Navigate(ctx, flags.url); err != nil {
		_ = s.Close()
		return nil, err
	}
	if err := s.Study(ctx, cache, keep); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to study %s: %w", flags.url, err)
	}
	return &studiedPage{cache: cache, session: s}, nil
}

// simplifyResult is one line of simplify output.
type simplifyResult struct {
	Locator    string `json:"locator"`
	Simplified string `json:"simplified"`
	Visible    *bool  `json:"visible,omitempty"`
}

func newSimplifyCmd() *cobra.Command {
	var (
		flags  pageFlags
		noCSS  bool
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "simplify LOCATOR...",
		Short: "Rewrites locators into the simplest form that selects the same element",
		Long: `Studies the page given by --file or --url and rewrites each locator into
id=, name=, or a structural path, whichever is the simplest that still selects
the same element. Locators that match nothing are echoed unchanged.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}
			if verify && flags.url == "" {
				return fmt.Errorf("--verify needs a live page (--url)")
			}

			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, cfg); err != nil {
				return err
			}
			logger := observability.GetLogger()

			page, err := openPage(ctx, cfg, &flags, logger)
			if err != nil {
				return err
			}
			defer page.Close()

			results := make([]simplifyResult, 0, len(args))
			for _, raw := range args {
				r := simplifyResult{Locator: raw, Simplified: page.cache.SimplifyLocator(raw, !noCSS)}
				if verify {
					visible := page.session.IsVisible(ctx, r.Simplified)
					r.Visible = &visible
				}
				results = append(results, r)
			}

			return writeResults(cmd.OutOrStdout(), flags.output, results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintf(w, "%s => %s", r.Locator, r.Simplified)
					if r.Visible != nil {
						if *r.Visible {
							fmt.Fprint(w, " (visible)")
						} else {
							fmt.Fprint(w, " (not visible)")
						}
					}
					fmt.Fprintln(w)
				}
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&noCSS, "no-css", false, "never fall back to a css= path")
	cmd.Flags().Bool("css-paths", false, "fall back to css= paths instead of xpath=")
	cmd.Flags().BoolVar(&verify, "verify", false, "check that each simplified locator is visible in the live page")
	return cmd
}

// findResult is one line of find output.
type findResult struct {
	Locator string            `json:"locator"`
	Found   bool              `json:"found"`
	Tag     string            `json:"tag,omitempty"`
	XPath   string            `json:"xpath,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
	Text    string            `json:"text,omitempty"`
}

func newFindCmd() *cobra.Command {
	var flags pageFlags

	cmd := &cobra.Command{
		Use:   "find LOCATOR...",
		Short: "Shows the element each locator selects in the studied page",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cmd, cfg); err != nil {
				return err
			}

			page, err := openPage(ctx, cfg, &flags, observability.GetLogger())
			if err != nil {
				return err
			}
			defer page.Close()

			results := make([]findResult, 0, len(args))
			missing := 0
			for _, raw := range args {
				r := findResult{Locator: raw}
				if node, ok := page.cache.Find(raw); ok {
					r.Found = true
					r.Tag = node.Tag()
					r.XPath = node.XPath()
					r.Attrs = node.Attrs()
					r.Text = node.Text()
				} else {
					missing++
				}
				results = append(results, r)
			}

			err = writeResults(cmd.OutOrStdout(), flags.output, results, func(w io.Writer) {
				for _, r := range results {
					if !r.Found {
						fmt.Fprintf(w, "%s => not found\n", r.Locator)
						continue
					}
					fmt.Fprintf(w, "%s => <%s> %s\n", r.Locator, r.Tag, r.XPath)
				}
			})
			if err != nil {
				return err
			}
			if missing > 0 {
				return fmt.Errorf("%d of %d locators not found", missing, len(args))
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// writeResults renders results as indented JSON or through text.
func writeResults(w io.Writer, format string, results interface{}, text func(io.Writer)) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		return nil
	}
	text(w)
	return nil
}
