package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/allisson/piimask/cmd/app/commands"
	"github.com/allisson/piimask/internal/app"
	"github.com/allisson/piimask/internal/config"
)

// offlineDeps builds the file-based command dependencies. Nothing here opens the
// database or the artifact bucket.
func offlineDeps(container *app.Container, withDetector bool) (commands.OfflineDeps, error) {
	taskConfig, err := container.TaskConfig()
	if err != nil {
		return commands.OfflineDeps{}, err
	}
	codec, err := container.RecordCodec()
	if err != nil {
		return commands.OfflineDeps{}, err
	}
	keyWrapper, err := container.KeyWrapper()
	if err != nil {
		return commands.OfflineDeps{}, fmt.Errorf("failed to open KMS key: %w", err)
	}

	deps := commands.OfflineDeps{
		Engine:     container.MaskEngine(),
		Codec:      codec,
		KeyWrapper: keyWrapper,
		Config:     taskConfig,
		Logger:     container.Logger(),
	}
	if withDetector {
		detector, err := container.Detector()
		if err != nil {
			return commands.OfflineDeps{}, err
		}
		deps.Detector = detector
	}
	return deps, nil
}

func getDocumentCommands() []*cli.Command {
	return []*cli.Command{
		{
			Name:      "mask",
			Usage:     "Mask a local document and write the artifact, metadata and key files",
			ArgsUsage: "<document>",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "output-dir",
					Aliases: []string{"o"},
					Usage:   "Directory for the output files (default: next to the document)",
				},
				&cli.StringFlag{
					Name:    "spans",
					Aliases: []string{"s"},
					Usage:   "JSON file with detected spans (default: run the built-in detectors)",
				},
				&cli.StringFlag{
					Name:  "document-format",
					Usage: "Document format: text, csv, png or jpeg (default: detected)",
				},
				&cli.StringSliceFlag{
					Name:    "category",
					Aliases: []string{"c"},
					Usage:   "Category to mask, repeatable (default: SELECTABLE_CATEGORIES)",
				},
				&cli.BoolFlag{
					Name:  "all-categories",
					Usage: "Mask every detected category",
				},
				&cli.StringFlag{
					Name:    "algorithm",
					Aliases: []string{"alg"},
					Usage:   "Encryption algorithm: aes-gcm or chacha20-poly1305 (default: DEFAULT_ALGORITHM)",
				},
				&cli.StringFlag{
					Name:  "placeholder-style",
					Usage: "Placeholder style: label or tagged (default: PLACEHOLDER_STYLE)",
				},
				&cli.BoolFlag{
					Name:  "preserve-regions",
					Usage: "Store encrypted original pixels of masked image regions (default: PRESERVE_REGIONS)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return fmt.Errorf("expected exactly one document, got %d", cmd.Args().Len())
				}

				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				deps, err := offlineDeps(container, cmd.String("spans") == "")
				if err != nil {
					return err
				}

				opts := commands.MaskFileOptions{
					InputPath:     cmd.Args().First(),
					OutputDir:     cmd.String("output-dir"),
					SpansPath:     cmd.String("spans"),
					Format:        cmd.String("document-format"),
					Categories:    cmd.StringSlice("category"),
					AllCategories: cmd.Bool("all-categories"),
					Algorithm:     cmd.String("algorithm"),
					Style:         cmd.String("placeholder-style"),
					OutputFormat:  cmd.String("format"),
				}
				if cmd.IsSet("preserve-regions") {
					preserve := cmd.Bool("preserve-regions")
					opts.PreserveRegions = &preserve
				}

				return commands.RunMaskFile(ctx, deps, commands.DefaultIO().Writer, opts)
			},
		},
		{
			Name:  "restore",
			Usage: "Restore a document from its masked artifact, metadata file and key file",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "artifact",
					Aliases:  []string{"a"},
					Required: true,
					Usage:    "Masked artifact file",
				},
				&cli.StringFlag{
					Name:     "metadata",
					Aliases:  []string{"m"},
					Required: true,
					Usage:    "Metadata file written at mask time",
				},
				&cli.StringFlag{
					Name:     "key",
					Aliases:  []string{"k"},
					Required: true,
					Usage:    "Key file written at mask time",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Restored document path (default: <artifact>.restored.<ext>)",
				},
				formatFlag(),
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				deps, err := offlineDeps(container, false)
				if err != nil {
					return err
				}

				return commands.RunRestoreFile(ctx, deps, commands.DefaultIO().Writer, commands.RestoreFileOptions{
					ArtifactPath: cmd.String("artifact"),
					MetadataPath: cmd.String("metadata"),
					KeyPath:      cmd.String("key"),
					OutputPath:   cmd.String("output"),
					OutputFormat: cmd.String("format"),
				})
			},
		},
		{
			Name:      "inspect-metadata",
			Usage:     "Validate a metadata file and list its entries without revealing values",
			ArgsUsage: "<metadata.json>",
			Flags:     []cli.Flag{formatFlag()},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return fmt.Errorf("expected exactly one metadata file, got %d", cmd.Args().Len())
				}

				container := app.NewContainer(config.Load())
				defer func() { _ = container.Shutdown(ctx) }()

				codec, err := container.RecordCodec()
				if err != nil {
					return err
				}
				return commands.RunInspectMetadata(codec, commands.DefaultIO().Writer, cmd.Args().First(), cmd.String("format"))
			},
		},
	}
}
