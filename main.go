// linguaflow keeps a project's translations in sync with a repository.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
	"gopkg.in/yaml.v3"

	apiapp "linguaflow/internal/api/app"
	"linguaflow/internal/config"
	"linguaflow/internal/domain"
	"linguaflow/internal/logging"
	"linguaflow/internal/usecase/conflicts"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
)

// rootOptions holds the persistent flags every subcommand reads.
type rootOptions struct {
	configPath string
	userID     string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:   "linguaflow",
		Short: "Translation management synced with GitHub repositories",
		Long: `linguaflow stores translations per project and language, detects
conflicts against translation files in a repository, applies resolutions and
publishes the result as a pull request.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.configPath, "config", "linguaflow.yaml", "Config file (YAML)")
	root.PersistentFlags().StringVar(&o.userID, "user", "cli", "User recorded on changes")

	root.AddCommand(
		newProjectCmd(o),
		newLanguageCmd(o),
		newTranslationCmd(o),
		newIntegrationCmd(o),
		newImportCmd(o),
		newPullCmd(o),
		newResolveCmd(o),
		newExportCmd(o),
		newPublishCmd(o),
		newHistoryCmd(o),
		newVersionCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp loads config, wires the app and closes it after fn.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *App) error) error {
	cfg, err := config.Load(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	a, err := NewApp(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(cmd.Context(), a)
}

func printJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(pretty.Pretty(b))
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("linguaflow %s (%s)\n", version, commit)
		},
	}
}

// ---------------------------------------------------------------------------
// Projects and languages
// ---------------------------------------------------------------------------

func newProjectCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "project", Short: "Manage projects"}

	var source string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				p, err := a.Projects.Create(ctx, args[0], source)
				if err != nil {
					return err
				}
				return printJSON(p)
			})
		},
	}
	create.Flags().StringVar(&source, "source", "en", "Source language code")

	list := &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				ps, err := a.Projects.List(ctx)
				if err != nil {
					return err
				}
				return printJSON(ps)
			})
		},
	}

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project and everything attached to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				_, err := a.Projects.Delete(ctx, id)
				return err
			})
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func newLanguageCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "language", Short: "Manage project languages"}
	var project int64
	var name string

	add := &cobra.Command{
		Use:   "add CODE",
		Short: "Attach a language to a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				l, err := a.Projects.AddLanguage(ctx, project, args[0], name)
				if err != nil {
					return err
				}
				return printJSON(l)
			})
		},
	}
	add.Flags().StringVar(&name, "name", "", "Display name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a project's languages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				ls, err := a.Projects.ListLanguages(ctx, project)
				if err != nil {
					return err
				}
				return printJSON(ls)
			})
		},
	}

	cmd.PersistentFlags().Int64Var(&project, "project", 0, "Project ID")
	_ = cmd.MarkPersistentFlagRequired("project")
	cmd.AddCommand(add, list)
	return cmd
}

// ---------------------------------------------------------------------------
// Translations
// ---------------------------------------------------------------------------

func newTranslationCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "translation", Short: "Read and edit translations"}
	var project int64
	var lang, status string

	set := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set one translation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Translations.Upsert(ctx, apiapp.UpsertTranslationRequest{
					ProjectID: project,
					Language:  lang,
					Key:       args[0],
					Content:   args[1],
					Status:    status,
					UserID:    o.userID,
				})
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	set.Flags().StringVar(&status, "status", domain.StatusApproved, "approved or pending")

	list := &cobra.Command{
		Use:   "list",
		Short: "List a language's translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				ts, err := a.Translations.List(ctx, project, lang)
				if err != nil {
					return err
				}
				return printJSON(ts)
			})
		},
	}

	versions := &cobra.Command{
		Use:   "versions KEY",
		Short: "Show the version history of one key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				vs, err := a.Translations.Versions(ctx, project, lang, args[0])
				if err != nil {
					return err
				}
				return printJSON(vs)
			})
		},
	}

	rename := &cobra.Command{
		Use:   "rename OLD NEW",
		Short: "Rename a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				return a.Translations.RenameKey(ctx, project, args[0], args[1])
			})
		},
	}

	keys := &cobra.Command{
		Use:   "keys",
		Short: "List the project's keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				ks, err := a.Translations.Keys(ctx, project)
				if err != nil {
					return err
				}
				return printJSON(ks)
			})
		},
	}

	cmd.PersistentFlags().Int64Var(&project, "project", 0, "Project ID")
	cmd.PersistentFlags().StringVar(&lang, "lang", "", "Language code")
	_ = cmd.MarkPersistentFlagRequired("project")
	cmd.AddCommand(set, list, versions, rename, keys)
	return cmd
}

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

func newIntegrationCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "integration", Short: "Manage the project's repository integration"}
	var project int64
	var provider string
	var repoCfg domain.RepoConfig
	var verify bool

	connect := &cobra.Command{
		Use:   "connect",
		Short: "Connect a project to a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				in, err := a.Integrations.Connect(ctx, apiapp.ConnectRequest{
					ProjectID:    project,
					Provider:     provider,
					Config:       repoCfg,
					VerifyBranch: verify,
				})
				if err != nil {
					return err
				}
				return printJSON(in)
			})
		},
	}
	update := &cobra.Command{
		Use:   "update",
		Short: "Replace the repository config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				in, err := a.Integrations.UpdateConfig(ctx, project, repoCfg)
				if err != nil {
					return err
				}
				return printJSON(in)
			})
		},
	}
	for _, c := range []*cobra.Command{connect, update} {
		c.Flags().StringVar(&repoCfg.Repository, "repo", "", "Repository (owner/name, or a path for the local provider)")
		c.Flags().StringVar(&repoCfg.Branch, "branch", "main", "Base branch")
		c.Flags().StringVar(&repoCfg.TranslationPath, "path", "", "Directory holding translation files")
		c.Flags().StringVar(&repoCfg.FilePattern, "pattern", "", "Glob for translation file names")
	}
	connect.Flags().StringVar(&provider, "provider", domain.ProviderGitHub, "github or local")
	connect.Flags().BoolVar(&verify, "verify", false, "Check that the branch exists")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the integration and its latest export",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				in, err := a.Integrations.Get(ctx, project)
				if err != nil {
					return err
				}
				last, err := a.Integrations.LatestSync(ctx, project)
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"integration": in, "last_export": last})
			})
		},
	}

	setConnected := func(use string, connected bool) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: use + " the integration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return o.withApp(cmd, func(ctx context.Context, a *App) error {
					in, err := a.Integrations.SetConnected(ctx, project, connected)
					if err != nil {
						return err
					}
					return printJSON(in)
				})
			},
		}
	}

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the integration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				_, err := a.Integrations.Delete(ctx, project)
				return err
			})
		},
	}

	cmd.PersistentFlags().Int64Var(&project, "project", 0, "Project ID")
	cmd.AddCommand(connect, update, show, setConnected("enable", true), setConnected("disable", false), del, newBranchesCmd(o), newRepositoriesCmd(o))
	return cmd
}

func newBranchesCmd(o *rootOptions) *cobra.Command {
	var provider, repo string
	cmd := &cobra.Command{
		Use:   "branches",
		Short: "List branches of a repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				bs, err := a.Integrations.Branches(ctx, provider, repo)
				if err != nil {
					return err
				}
				return printJSON(bs)
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", domain.ProviderGitHub, "github or local")
	cmd.Flags().StringVar(&repo, "repo", "", "Repository")
	_ = cmd.MarkFlagRequired("repo")
	return cmd
}

func newRepositoriesCmd(o *rootOptions) *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "repos",
		Short: "List repositories the configured credentials can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				rs, err := a.Integrations.Repositories(ctx, provider)
				if err != nil {
					return err
				}
				return printJSON(rs)
			})
		},
	}
	cmd.Flags().StringVar(&provider, "provider", domain.ProviderGitHub, "Repository host")
	return cmd
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

func newImportCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "import", Short: "Import translations"}
	var project int64
	var overwrite bool
	var lang, format string

	file := &cobra.Command{
		Use:   "file PATH",
		Short: "Import one local translation file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Import.Import(ctx, apiapp.ImportRequest{
					ProjectID: project,
					Filename:  filepath.Base(args[0]),
					Format:    format,
					Language:  lang,
					Overwrite: overwrite,
					UserID:    o.userID,
				}, content)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	file.Flags().StringVar(&lang, "lang", "", "Language code (default: from file name)")
	file.Flags().StringVar(&format, "format", "", "File format (default: from extension)")

	remote := &cobra.Command{
		Use:   "remote",
		Short: "Import every translation file from the connected repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Import.ImportRemote(ctx, apiapp.RemoteImportRequest{ProjectID: project, UserID: o.userID, Overwrite: overwrite})
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}

	cmd.PersistentFlags().Int64Var(&project, "project", 0, "Project ID")
	cmd.PersistentFlags().BoolVar(&overwrite, "overwrite", false, "Replace existing values")
	_ = cmd.MarkPersistentFlagRequired("project")
	cmd.AddCommand(file, remote)
	return cmd
}

func newPullCmd(o *rootOptions) *cobra.Command {
	var project int64
	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Compare repository files with stored translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Sync.Pull(ctx, project)
				if err != nil {
					return err
				}
				for _, fe := range res.FileErrors {
					a.log.Warn("skipped file", "path", fe.Path, "err", fe.Err)
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "Project ID")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newResolveCmd(o *rootOptions) *cobra.Command {
	var project int64
	var file string
	var publish bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Apply conflict decisions",
		Long: `Apply conflict decisions read from a YAML or JSON file shaped as
language -> key -> {type: local|remote|manual, manualValue: "..."}.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			var decisions conflicts.Decisions
			if err := yaml.Unmarshal(raw, &decisions); err != nil {
				return fmt.Errorf("parse %s: %w", file, err)
			}
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Sync.Resolve(ctx, apiapp.ResolveRequest{
					ProjectID:   project,
					UserID:      o.userID,
					Decisions:   decisions,
					AutoPublish: publish,
				})
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "Project ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Decisions file")
	cmd.Flags().BoolVar(&publish, "publish", false, "Publish after applying")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExportCmd(o *rootOptions) *cobra.Command {
	var req apiapp.ExportFileRequest
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Render one language as a translation file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Export.ExportFile(ctx, req)
				if err != nil {
					return err
				}
				if out == "" {
					_, err = os.Stdout.Write(res.Content)
					return err
				}
				if err := os.WriteFile(out, res.Content, 0o644); err != nil {
					return err
				}
				a.log.Info("exported", "file", out, "entries", res.Entries)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "Project ID")
	cmd.Flags().StringVar(&req.Language, "lang", "", "Language code")
	cmd.Flags().StringVar(&req.Format, "format", domain.FormatJSON, "json, yaml, po or csv")
	cmd.Flags().BoolVar(&req.IncludePending, "include-pending", false, "Include pending translations")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}

func newPublishCmd(o *rootOptions) *cobra.Command {
	var req apiapp.PublishRequest
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Open a pull request with local translations",
		RunE: func(cmd *cobra.Command, args []string) error {
			req.UserID = o.userID
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				res, err := a.Sync.Publish(ctx, req)
				if err != nil {
					return err
				}
				return printJSON(res)
			})
		},
	}
	cmd.Flags().Int64Var(&req.ProjectID, "project", 0, "Project ID")
	cmd.Flags().StringVar(&req.Repository, "repo", "", "Override the integration's repository")
	cmd.Flags().StringVar(&req.BaseBranch, "base", "", "Override the integration's branch")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newHistoryCmd(o *rootOptions) *cobra.Command {
	var project int64
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd, func(ctx context.Context, a *App) error {
				hs, err := a.Integrations.History(ctx, project, limit)
				if err != nil {
					return err
				}
				return printJSON(hs)
			})
		},
	}
	cmd.Flags().Int64Var(&project, "project", 0, "Project ID")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of entries (default 5)")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}
