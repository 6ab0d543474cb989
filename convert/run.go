// Package convert drives the command line actions: it locates the source,
// runs the book pipeline and writes the resulting site.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"hsplit/book"
	"hsplit/rules"
	"hsplit/state"
)

// Run builds site out of a single source document.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	src, err := sourceArg(cmd)
	if err != nil {
		return err
	}

	dst, explicit := cmd.Args().Get(1), true
	if len(dst) == 0 {
		explicit = false
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	applyFlags(env, cmd, log)
	env.Overwrite = cmd.Bool("overwrite")
	if err := loadSiteFiles(env); err != nil {
		return err
	}

	rs, err := compileRules(env)
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("rules", rs.Name))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, explicit, rs, log)
}

// process handles the core build logic independently of CLI framework.
func process(ctx context.Context, src, dst string, explicit bool, rs *rules.Compiled, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	s, err := resolveSource(ctx, src, env.Cfg.Document.InputName, env.CodePage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.Warn("Unable to remove temporary files", zap.Error(err))
		}
	}()

	var outputName string
	defer func(start time.Time) {
		if r := recover(); r != nil {
			log.Error("Build ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("build panic: %v", r)
		}
	}(time.Now())

	b, err := prepareBook(ctx, s, rs, log)
	if err != nil {
		return err
	}

	outputName = buildOutputPath(b, s, dst, explicit, env)
	log.Info("Writing site", zap.String("to", outputName), zap.Int("pages", len(b.Chapters)), zap.Stringer("id", b.ID))
	if err := writeSite(ctx, b, s, outputName, env, log); err != nil {
		return fmt.Errorf("unable to write site: %w", err)
	}
	return nil
}

func prepareBook(ctx context.Context, s *source, rs *rules.Compiled, log *zap.Logger) (*book.Book, error) {
	f, err := os.Open(s.File)
	if err != nil {
		return nil, fmt.Errorf("unable to open source document: %w", err)
	}
	defer f.Close()

	b, err := book.Prepare(ctx, f, s.Name, rs, log)
	if err != nil {
		return nil, fmt.Errorf("unable to process source (%s): %w", s.Name, err)
	}
	return b, nil
}

// Inspect prints structure of the source as seen by the engine without
// writing anything.
func Inspect(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	src, err := sourceArg(cmd)
	if err != nil {
		return err
	}
	applyFlags(env, cmd, log)

	rs, err := compileRules(env)
	if err != nil {
		return err
	}
	return inspect(ctx, cmd.Root().Writer, src, rs, log)
}

func inspect(ctx context.Context, w io.Writer, src string, rs *rules.Compiled, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	s, err := resolveSource(ctx, src, env.Cfg.Document.InputName, env.CodePage, log)
	if err != nil {
		return err
	}
	defer s.Close()

	b, err := prepareBook(ctx, s, rs, log)
	if err != nil {
		return err
	}
	if env.Rpt != nil {
		buf := new(bytes.Buffer)
		if err := writeInspection(buf, b); err == nil {
			env.Rpt.StoreData("inspect.txt", buf.Bytes())
		}
	}
	return writeInspection(w, b)
}

// Dedupe removes duplicate images from a source directory updating
// documents which refer to them.
func Dedupe(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("dedupe")

	dir, err := sourceArg(cmd)
	if err != nil {
		return err
	}
	if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
		return fmt.Errorf("source directory was not found (%s)", dir)
	}

	images := cmd.String("images")
	if images == "" {
		images = env.Cfg.Document.Assets.Images.Directory
	}
	dryRun := cmd.Bool("dry-run")

	stats, err := dedupeImages(ctx, dir, images, dryRun, log)
	if stats == nil {
		return err
	}
	for _, dup := range slices.Sorted(maps.Keys(stats.Replaced)) {
		log.Info("Duplicate image", zap.String("file", dup), zap.String("keep", stats.Replaced[dup]))
	}
	log.Info("Deduplication completed", zap.Bool("dry-run", dryRun),
		zap.Int("images", stats.Images), zap.Int("groups", stats.Groups),
		zap.Int("duplicates", stats.Duplicates), zap.Int("documents", stats.Documents))
	return err
}

// Rules lists embedded presets or prints a single rule set.
func Rules(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	w := cmd.Root().Writer

	name := cmd.Args().Get(0)
	if name == "" {
		for _, n := range rules.Names() {
			rs, err := rules.Preset(n)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%-20s %s\n", n, rs.Description); err != nil {
				return err
			}
		}
		return nil
	}

	rs, err := rules.Resolve(name)
	if err != nil {
		return err
	}
	if _, err := rs.Compile(); err != nil {
		env.Log.Warn("Rule set is not valid", zap.Error(err))
	}
	data, err := rules.Dump(rs)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func sourceArg(cmd *cli.Command) (string, error) {
	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return "", errors.New("no input source has been specified")
	}
	return filepath.Abs(src)
}

// applyFlags moves command line options shared by build and inspect into
// program state.
func applyFlags(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) {
	env.Rules = cmd.String("rules")
	env.Title = cmd.String("title")
	if name := cmd.String("input"); name != "" {
		env.Cfg.Document.InputName = name
	}

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		if env.CodePage = lookupEncoding(cp, log); env.CodePage != nil {
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", cp))
		}
	}

	cs := cmd.String("encoding")
	if cs == "" {
		cs = env.Cfg.Document.ForceEncoding
	}
	if cs != "" {
		if env.SourceEncoding = lookupEncoding(cs, log); env.SourceEncoding != nil {
			log.Debug("Forcing source document encoding", zap.String("charset", cs))
		}
	}
}

func lookupEncoding(name string, log *zap.Logger) encoding.Encoding {
	enc, err := ianaindex.IANA.Encoding(name)
	if err == nil && enc == nil {
		err = errors.New("character set is not supported")
	}
	if err != nil {
		log.Warn("Unknown character set name, ignoring", zap.String("charset", name), zap.Error(err))
		return nil
	}
	return enc
}

// loadSiteFiles replaces embedded page template and stylesheet with
// configured ones.
func loadSiteFiles(env *state.LocalEnv) error {
	site := &env.Cfg.Document.Site
	if site.TemplatePath != "" {
		data, err := os.ReadFile(site.TemplatePath)
		if err != nil {
			return fmt.Errorf("unable to read page template from %q: %w", site.TemplatePath, err)
		}
		env.PageTemplate = data
	}
	if site.StylesheetPath != "" {
		data, err := os.ReadFile(site.StylesheetPath)
		if err != nil {
			return fmt.Errorf("unable to read stylesheet from %q: %w", site.StylesheetPath, err)
		}
		env.Stylesheet = data
	}
	return nil
}

func compileRules(env *state.LocalEnv) (*rules.Compiled, error) {
	rs, err := rules.Resolve(env.RulesName())
	if err != nil {
		return nil, fmt.Errorf("unable to load rule set: %w", err)
	}
	return rs.Compile()
}
