package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"voxclip/internal/catalog"
	"voxclip/internal/config"
	"voxclip/internal/notifications"
	"voxclip/internal/preflight"
)

type doctorReport struct {
	Config string             `json:"config"`
	Checks []preflight.Result `json:"checks"`
	Failed int                `json:"failed"`
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check binaries, directories, catalog, and providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			report := doctorReport{Config: configSummary(cfg)}
			report.Checks = preflight.RunAll(cmd.Context(), cfg)

			store, err := catalog.Open(cmd.Context(), cfg)
			if err != nil {
				report.Checks = append(report.Checks, preflight.Result{Name: "Catalog", Detail: err.Error()})
			} else {
				report.Checks = append(report.Checks, preflight.CheckCatalog(cmd.Context(), store.DB()))
				_ = store.Close()
			}
			if cfg.Transcription.Provider == config.TranscriptionOpenAI {
				report.Checks = append(report.Checks, preflight.CheckOpenAI(cmd.Context(), cfg.Transcription.OpenAIBaseURL, cfg.Transcription.OpenAIAPIKey))
			}
			if notify {
				report.Checks = append(report.Checks, checkNotifications(cmd, cfg))
			}
			for _, check := range report.Checks {
				if !check.Passed {
					report.Failed++
				}
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := isTerminal(out)
				fmt.Fprintln(out, renderSectionHeader("voxclip doctor", colorize))
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, report.Config, colorize))
				for _, check := range report.Checks {
					kind := statusOK
					if !check.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
				}
			}
			if report.Failed > 0 {
				return fmt.Errorf("doctor found %d failing check(s)", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Send a test notification to the configured ntfy topic")
	return cmd
}

func checkNotifications(cmd *cobra.Command, cfg *config.Config) preflight.Result {
	result := preflight.Result{Name: "Notifications"}
	if cfg.Notifications.NtfyTopic == "" {
		result.Detail = "notifications.ntfy_topic is not set"
		return result
	}
	if err := notifications.NewService(cfg).Publish(cmd.Context(), notifications.EventTest, nil); err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Detail = "test message sent"
	return result
}

func configSummary(cfg *config.Config) string {
	return fmt.Sprintf("transcription=%s storage=%s catalog=%s", cfg.Transcription.Provider, cfg.Storage.Provider, cfg.Catalog.Driver)
}
