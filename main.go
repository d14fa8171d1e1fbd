package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rdyjun/lclip/internal/config"
	"github.com/rdyjun/lclip/internal/logging"
	"github.com/rdyjun/lclip/pkg/editor"
)

var (
	rootCmd = &cobra.Command{
		Use:   "lclip",
		Short: "A timeline editor core for short-form gameplay clips",
		Long: `lclip compiles editing-session timelines into rendered videos.

Examples:
  # Export a project to a video file
  lclip export -p project.json -o highlights.mp4

  # Inspect a source file
  lclip probe -i gameplay.mp4`,
	}

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Render a project file to a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &config.ExportOptions{}
			opts.ProjectPath, _ = cmd.Flags().GetString("project")
			opts.OutputPath, _ = cmd.Flags().GetString("output")
			opts.ConfigPath, _ = cmd.Flags().GetString("config")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			logging.Init(opts.Verbose)
			return editor.Export(context.Background(), opts, &consoleSink{})
		},
	}

	probeCmd = &cobra.Command{
		Use:   "probe",
		Short: "Print stream metadata for a media source",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &config.ProbeOptions{}
			opts.InputPath, _ = cmd.Flags().GetString("input")
			opts.Verbose, _ = cmd.Flags().GetBool("verbose")

			logging.Init(opts.Verbose)
			info, err := editor.Probe(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Printf("duration: %.3fs\n", info.Duration)
			fmt.Printf("video:    %dx%d @ %.3f fps (%s)\n", info.Width, info.Height, info.FPS, info.Codec)
			fmt.Printf("audio:    %v\n", info.HasAudio)
			return nil
		},
	}

	fontsCmd = &cobra.Command{
		Use:   "fonts",
		Short: "Resolve a font family to a system font file",
		RunE: func(cmd *cobra.Command, args []string) error {
			family, _ := cmd.Flags().GetString("family")
			bold, _ := cmd.Flags().GetBool("bold")
			verbose, _ := cmd.Flags().GetBool("verbose")

			logging.Init(verbose)
			path, err := editor.ResolveFont(family, bold)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}
)

// consoleSink prints progress lines for interactive runs.
type consoleSink struct{}

func (consoleSink) OnProgress(percent float64, message string) {
	fmt.Printf("\r%5.1f%% %-40s", percent, message)
}

func (consoleSink) OnDone(outputRef string) {
	fmt.Printf("\ndone: %s\n", outputRef)
}

func (consoleSink) OnError(message string) {
	fmt.Printf("\nexport failed: %s\n", message)
}

func init() {
	exportCmd.Flags().StringP("project", "p", "", "Project JSON file")
	exportCmd.Flags().StringP("output", "o", "", "Output video path")
	exportCmd.Flags().StringP("config", "c", "", "Editor config file (TOML)")
	exportCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	exportCmd.MarkFlagRequired("project")
	exportCmd.MarkFlagRequired("output")

	probeCmd.Flags().StringP("input", "i", "", "Input media file")
	probeCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	probeCmd.MarkFlagRequired("input")

	fontsCmd.Flags().StringP("family", "f", "", "Font family name")
	fontsCmd.Flags().Bool("bold", false, "Prefer the bold variant")
	fontsCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging")
	fontsCmd.MarkFlagRequired("family")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(fontsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
