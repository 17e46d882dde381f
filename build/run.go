// Package build implements the build subcommand: it loads the document
// forest, assembles one composite tree per configured output document and
// renders each one into the output directory.
package build

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"pdc/config"
	"pdc/doctree"
	"pdc/forest"
	"pdc/highlight"
	"pdc/pipeline"
	"pdc/state"
)

// Run is the build subcommand action.
func Run(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log

	treeDir := cmd.String("trees")
	if len(treeDir) == 0 {
		treeDir = env.Cfg.Build.TreeDir
	}
	outDir := cmd.String("out")
	if len(outDir) == 0 {
		outDir = env.Cfg.Build.OutputDir
	}

	docs := documents(env.Cfg, cmd.Args().Slice(), log)
	if len(docs) == 0 {
		log.Warn("Nothing to build, document list is empty")
		return nil
	}

	provider, err := forest.Load(treeDir, log.Named("forest"))
	if err != nil {
		return fmt.Errorf("unable to load document trees: %w", err)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	driver := &pipeline.Driver{
		Provider:    provider,
		Index:       forest.NewIndexAdapter(provider),
		Renderer:    pipeline.DebugRenderer{},
		Highlighter: highlight.Chroma{},
		Cover:       &pipeline.CoverBuilder{SearchPath: env.Cfg.Build.TemplatePath},
		MakeSink:    sinkFactory(outDir, env.Overwrite),
		Options:     pipeline.DefaultOptions().Override(env.Cfg.Build.Options),
		Log:         log,
	}
	return driver.Run(ctx, docs)
}

// documents translates the configured document list into pipeline specs,
// optionally narrowed to the targets named on the command line.
func documents(cfg *config.Config, only []string, log *zap.Logger) []pipeline.DocumentSpec {
	requested := make(map[string]struct{}, len(only))
	leftover := make(map[string]struct{}, len(only))
	for _, t := range only {
		requested[t] = struct{}{}
		leftover[t] = struct{}{}
	}

	var out []pipeline.DocumentSpec
	for _, dc := range cfg.Build.Documents {
		if len(requested) > 0 {
			if _, ok := requested[dc.Target]; !ok {
				continue
			}
			delete(leftover, dc.Target)
		}
		spec := pipeline.DocumentSpec{
			Root:      doctree.DocumentID(dc.Root),
			Target:    dc.Target,
			Title:     dc.Title,
			Subtitle:  dc.Subtitle,
			Author:    dc.Author,
			Overrides: dc.Options,
		}
		for _, a := range dc.Appendices {
			spec.Appendices = append(spec.Appendices, doctree.DocumentID(a))
		}
		out = append(out, spec)
	}
	for t := range leftover {
		log.Warn("Requested target is not configured, ignoring", zap.String("target", t))
	}
	return out
}

func sinkFactory(outDir string, overwrite bool) pipeline.SinkFactory {
	return func(target string) (io.WriteCloser, error) {
		name := filepath.Join(outDir, config.CleanFileName(target))
		if !overwrite {
			if _, err := os.Stat(name); err == nil {
				return nil, fmt.Errorf("destination already exists: %s", name)
			}
		}
		return os.Create(name)
	}
}
