package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/app"
	"github.com/nbyapp/nbyapp/internal/bootstrap"
	"github.com/nbyapp/nbyapp/internal/config"
	"github.com/nbyapp/nbyapp/internal/generator"
	"github.com/nbyapp/nbyapp/internal/llm"
	"github.com/nbyapp/nbyapp/internal/logging"
	"github.com/nbyapp/nbyapp/internal/status"
	"github.com/nbyapp/nbyapp/internal/store"
)

type cli struct {
	logger     *zap.Logger
	components *bootstrap.Components
}

// execute runs the command line in args. What the command opened is released
// afterwards, also when the command fails.
func (c *cli) execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := c.close(); err == nil {
		err = cerr
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "appgen",
		Short:         "Generate web apps from ideas with LLM services",
		Long:          "Turns an app idea into an HTML/CSS/JavaScript app using one of the configured LLM services and manages the saved apps.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.open(cmd.Context())
		},
	}

	root.AddCommand(
		c.servicesCmd(),
		c.generateCmd(),
		c.listCmd(),
		c.showCmd(),
		c.deleteCmd(),
	)
	return root
}

func (c *cli) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout belongs to command output
	c.logger, err = logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return err
	}

	c.components, err = bootstrap.Build(ctx, cfg, c.logger)
	return err
}

func (c *cli) close() error {
	if c.logger != nil {
		_ = c.logger.Sync()
		c.logger = nil
	}
	if c.components == nil {
		return nil
	}
	err := c.components.Close()
	c.components = nil
	return err
}

func (c *cli) servicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "services",
		Short: "List LLM services and their models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printServices(cmd.OutOrStdout(), c.components.Registry.Services())
			return nil
		},
	}
}

func printServices(w io.Writer, services []llm.Service) {
	for _, svc := range services {
		fmt.Fprintf(w, "%s %s (%s)\n", svc.Icon, svc.DisplayName, svc.ID)
		def := svc.DefaultModel().ID
		for _, m := range svc.Models {
			marker := " "
			if m.ID == def {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %-28s %s\n", marker, m.ID, m.DisplayName)
		}
	}
}

func (c *cli) generateCmd() *cobra.Command {
	var serviceID, modelID string

	cmd := &cobra.Command{
		Use:   "generate [flags] IDEA...",
		Short: "Generate an app from an idea",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			idea := strings.Join(args, " ")

			unsubscribe := c.components.Broadcaster.Subscribe(stepPrinter(out))
			defer unsubscribe()

			res, err := c.components.Generator.Generate(cmd.Context(), generator.Request{
				ServiceID: serviceID,
				ModelID:   modelID,
				Idea:      idea,
			})
			if errors.Is(err, llm.ErrUnknownService) {
				return fmt.Errorf("unknown service %q, run 'appgen services' to see the available ones", serviceID)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(out, res.Message)
			fmt.Fprintf(out, "App ID: %s\n", res.AppID)
			for _, f := range res.Files {
				fmt.Fprintf(out, "  %s (%d bytes)\n", f.Name, len(f.Content))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&serviceID, "service", "s", "", "LLM service id (see 'appgen services')")
	cmd.Flags().StringVarP(&modelID, "model", "m", "", "Model id; the service default when empty")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

// stepPrinter prints each new step once, as it arrives
func stepPrinter(w io.Writer) status.Observer {
	var (
		job  string
		seen int
	)
	return func(s status.Status) {
		if s.JobID != job {
			job = s.JobID
			seen = 0
		}
		for _, step := range s.Steps[min(seen, len(s.Steps)):] {
			fmt.Fprintf(w, "[%3d%%] %-7s %s\n", s.Progress, step.Kind, step.Message)
		}
		seen = len(s.Steps)
	}
}

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved apps, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := c.components.Store.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			app.SortNewestFirst(records)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSERVICE\tMODEL\tCREATED")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					rec.ID,
					rec.DisplayName,
					rec.ServiceDisplayName,
					rec.ModelDisplayName,
					rec.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				)
			}
			return tw.Flush()
		},
	}
}

func (c *cli) showCmd() *cobra.Command {
	var (
		fileName string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show a saved app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			rec, err := c.components.Store.GetByID(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("app %s not found", args[0])
			}
			if err != nil {
				return err
			}

			if fileName != "" {
				for _, f := range rec.Files {
					if f.Name == fileName {
						fmt.Fprintln(out, f.Content)
						return nil
					}
				}
				return fmt.Errorf("app %s has no file %s", rec.ID, fileName)
			}

			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}

			fmt.Fprintf(out, "ID:      %s\n", rec.ID)
			fmt.Fprintf(out, "Name:    %s\n", rec.DisplayName)
			fmt.Fprintf(out, "Idea:    %s\n", rec.Idea)
			fmt.Fprintf(out, "Service: %s (%s)\n", rec.ServiceDisplayName, rec.ModelDisplayName)
			fmt.Fprintf(out, "Created: %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			fmt.Fprintln(out, "Files:")
			for _, f := range rec.Files {
				fmt.Fprintf(out, "  %-12s %-10s %d bytes\n", f.Name, f.Type, len(f.Content))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&fileName, "file", "f", "", "Print the content of one file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the record as JSON")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a saved app",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := c.components.Store.DeleteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("app %s not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
