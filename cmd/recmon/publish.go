package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"recmon/internal/publish"
	"recmon/internal/report"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Build the report and publish it over MQTT or HTTP",
	Long: `publish builds one report and delivers it with the configured transport,
retrying on failure. With --interval it keeps publishing a fresh report on
every tick until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

var publishInterval time.Duration

func init() {
	publishCmd.Flags().DurationVar(&publishInterval, "interval", 0, "Publish repeatedly at this interval (0 publishes once)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	boardID := resolveBoardID(cfg)
	asm, err := newAssembler(cfg, boardID)
	if err != nil {
		return err
	}
	pub, err := publish.New(cfg, boardID)
	if err != nil {
		return err
	}

	if publishInterval <= 0 {
		return publishOnce(cmd.Context(), asm, pub)
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Printf("[INFO] Publishing %s every %v via %s", cfg.RecordingsDir, publishInterval, cfg.Publish.Transport)
	return publishLoop(ctx, asm, pub, publishInterval)
}

func publishOnce(ctx context.Context, asm *report.Assembler, pub publish.Publisher) error {
	r := asm.Build(ctx)
	if err := pub.Publish(ctx, r); err != nil {
		log.Printf("[ERROR] %v", err)
		return fmt.Errorf("failed to publish report: %w", err)
	}
	log.Printf("[INFO] Recordings status sent: %s", r.CameraStatus)
	return nil
}

// publishLoop publishes immediately and then on every tick. Failures are
// logged and the loop carries on; it returns when ctx is done.
func publishLoop(ctx context.Context, asm *report.Assembler, pub publish.Publisher, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_ = publishOnce(ctx, asm, pub)

	for {
		select {
		case <-ticker.C:
			_ = publishOnce(ctx, asm, pub)
		case <-ctx.Done():
			log.Println("[INFO] Shutting down publisher...")
			return nil
		}
	}
}
