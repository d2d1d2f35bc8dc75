// Package batch applies one stamp operation to every file in a stamp
// directory using a bounded worker pool.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/stampkit/internal/config"
	"github.com/ironsheep/stampkit/internal/detection"
	"github.com/ironsheep/stampkit/internal/imaging"
	"github.com/ironsheep/stampkit/internal/pipeline"
)

// Operation names a batch job.
type Operation string

const (
	OpNormalize Operation = "normalize"
	OpTrim      Operation = "trim"
	OpFlatten   Operation = "flatten"
	OpPreview   Operation = "preview"
	OpInspect   Operation = "inspect"
	OpDetect    Operation = "detect"
)

// Operations lists every supported operation in help order.
var Operations = []Operation{OpNormalize, OpTrim, OpFlatten, OpPreview, OpInspect, OpDetect}

// ParseOperation maps a command name to an Operation.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == strings.ToLower(strings.TrimSpace(s)) {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operation %q", s)
}

// Mutates reports whether op overwrites the stamp in place.
func (o Operation) Mutates() bool {
	return o == OpNormalize || o == OpTrim || o == OpFlatten
}

// Status classifies the outcome of one file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome is the result of one file.
type Outcome struct {
	Name   string
	Status Status
	Err    error
	// Detail is a one-line human summary.
	Detail string
	// Output is the written file, if any.
	Output string
	// Info is set by the inspect operation.
	Info *imaging.ImageInfo
}

// Report collects the outcomes of a run, in discovery order.
type Report struct {
	Op       Operation
	Outcomes []Outcome
	Elapsed  time.Duration
}

// Summary counts outcomes by status.
type Summary struct {
	OK      int
	Skipped int
	Failed  int
}

func (s Summary) String() string {
	return fmt.Sprintf("%d ok, %d skipped, %d failed", s.OK, s.Skipped, s.Failed)
}

func (r *Report) Summary() Summary {
	var s Summary
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusOK:
			s.OK++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Failed reports whether any file failed.
func (r *Report) Failed() bool {
	return r.Summary().Failed > 0
}

// Runner processes a stamp directory.
type Runner struct {
	dir       string
	names     []string
	backupDir string
	workers   int

	normalizer *pipeline.Normalizer
	trimmer    *pipeline.Trimmer
	flatten    color.NRGBA
	preview    color.NRGBA

	logger *zap.Logger
}

// NewRunner validates cfg and builds the pipelines it describes.
// A nil logger disables logging.
func NewRunner(cfg *config.Config, logger *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	normalizer, err := pipeline.NewNormalizer(cfg.Detect.ContentOptions(), cfg.Output.Size(), logger)
	if err != nil {
		return nil, err
	}
	trimmer, err := pipeline.NewTrimmer(cfg.Trim.TrimOptions(), logger)
	if err != nil {
		return nil, err
	}

	return &Runner{
		dir:        cfg.Batch.Dir,
		names:      append([]string(nil), cfg.Batch.Names...),
		backupDir:  cfg.Batch.BackupPath(),
		workers:    cfg.Batch.Workers,
		normalizer: normalizer,
		trimmer:    trimmer,
		flatten:    cfg.Colors.Flatten,
		preview:    cfg.Colors.Preview,
		logger:     logger,
	}, nil
}

// Run applies op to every discovered stamp. A failing file is recorded in its
// Outcome and never stops the others. The returned error is non-nil only when
// discovery fails or ctx is cancelled; files not started before cancellation
// are reported as skipped.
func (r *Runner) Run(ctx context.Context, op Operation) (*Report, error) {
	targets, err := Discover(r.dir, r.names)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &Report{Op: op, Outcomes: make([]Outcome, len(targets))}
	r.logger.Info("batch started",
		zap.String("op", string(op)),
		zap.String("dir", r.dir),
		zap.Int("files", len(targets)),
		zap.Int("workers", r.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, t := range targets {
		i, t := i, t
		if t.Missing {
			r.logger.Warn("file not found, skipping", zap.String("file", t.Name))
			report.Outcomes[i] = Outcome{Name: t.Name, Status: StatusSkipped, Detail: "not found"}
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				report.Outcomes[i] = Outcome{Name: t.Name, Status: StatusSkipped, Err: err, Detail: "cancelled"}
				return nil
			}
			report.Outcomes[i] = r.process(op, t)
			return nil
		})
	}
	_ = g.Wait()

	report.Elapsed = time.Since(start)
	r.logger.Info("batch finished",
		zap.String("op", string(op)),
		zap.Stringer("summary", report.Summary()),
		zap.Duration("elapsed", report.Elapsed))

	return report, ctx.Err()
}

func (r *Runner) process(op Operation, t Target) Outcome {
	logger := r.logger.With(zap.String("file", t.Name), zap.String("op", string(op)))
	start := time.Now()

	out, err := r.apply(op, t, logger)
	out.Name = t.Name
	if err != nil {
		out.Status, out.Err = StatusFailed, err
		logger.Error("failed", zap.Error(err))
		return out
	}
	if out.Status == "" {
		out.Status = StatusOK
	}
	logger.Info(out.Detail,
		zap.String("status", string(out.Status)),
		zap.Duration("elapsed", time.Since(start)))
	return out
}

func (r *Runner) apply(op Operation, t Target, logger *zap.Logger) (Outcome, error) {
	if op == OpInspect {
		info, err := imaging.Inspect(t.Path)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Info: info, Detail: describe(info)}, nil
	}

	img, _, err := imaging.Load(t.Path)
	if err != nil {
		return Outcome{}, err
	}

	switch op {
	case OpNormalize:
		res, err := r.normalizer.WithLogger(logger).Normalize(img)
		if err != nil {
			return Outcome{}, err
		}
		if err := r.replace(t, res.Image, logger); err != nil {
			return Outcome{}, err
		}
		detail := fmt.Sprintf("normalized %s -> %s", res.Source, r.normalizer.Size())
		if res.Cropped {
			detail += fmt.Sprintf(" (box %s at threshold %d, %.0f%% of area)", res.Box, res.Threshold, res.AreaRatio*100)
		} else {
			detail += " (no crop applied)"
		}
		return Outcome{Detail: detail, Output: t.Path}, nil

	case OpTrim:
		res, err := r.trimmer.WithLogger(logger).Trim(img)
		if err != nil {
			return Outcome{}, err
		}
		if !res.Cropped {
			return Outcome{Status: StatusSkipped, Detail: "no border to trim"}, nil
		}
		if err := r.replace(t, res.Image, logger); err != nil {
			return Outcome{}, err
		}
		b := res.Image.Bounds()
		detail := fmt.Sprintf("trimmed %s -> %dx%d (%.1f%% smaller)", res.Source, b.Dx(), b.Dy(), res.Reduction)
		return Outcome{Detail: detail, Output: t.Path}, nil

	case OpFlatten:
		if !imaging.HasTransparency(img) {
			return Outcome{Status: StatusSkipped, Detail: "already opaque"}, nil
		}
		if err := r.replace(t, imaging.Flatten(img, r.flatten), logger); err != nil {
			return Outcome{}, err
		}
		return Outcome{Detail: "flattened onto " + imaging.HexString(r.flatten), Output: t.Path}, nil

	case OpPreview:
		path := DerivedPath(t.Path, PreviewSuffix)
		if err := imaging.SavePNG(path, imaging.CompositePreview(img, r.preview)); err != nil {
			return Outcome{}, err
		}
		return Outcome{Detail: "preview written on " + imaging.HexString(r.preview), Output: path}, nil

	case OpDetect:
		det, err := r.normalizer.Detect(img)
		if errors.Is(err, detection.ErrNoContent) {
			return Outcome{Status: StatusSkipped, Detail: "no content box, normalize would use the full image"}, nil
		}
		if err != nil {
			return Outcome{}, err
		}
		path := DerivedPath(t.Path, DetectSuffix)
		overlay := imaging.Annotate(img, det.Box.Rect(), imaging.BoxColor, strconv.Itoa(det.Threshold))
		if err := imaging.SavePNG(path, overlay); err != nil {
			return Outcome{}, err
		}
		detail := fmt.Sprintf("box %s at threshold %d, %.0f%% of area", det.Box, det.Threshold, det.AreaRatio*100)
		return Outcome{Detail: detail, Output: path}, nil
	}

	return Outcome{}, fmt.Errorf("unknown operation %q", op)
}

// replace backs up the original once, then overwrites it with img.
func (r *Runner) replace(t Target, img image.Image, logger *zap.Logger) error {
	created, err := Backup(t.Path, r.backupDir)
	if err != nil {
		return err
	}
	if created {
		logger.Info("backup created", zap.String("backup_dir", r.backupDir))
	}
	return imaging.SavePNG(t.Path, img)
}

func describe(info *imaging.ImageInfo) string {
	s := fmt.Sprintf("%dx%d %s %s", info.Width, info.Height, info.Format, info.ColorDepth)
	if info.HasAlpha {
		s += fmt.Sprintf(", alpha %d-%d, %.1f%% transparent", info.Alpha.Min, info.Alpha.Max, info.Alpha.Percent)
	} else {
		s += ", no alpha"
	}
	return s + ", corner " + info.Corner.Hex
}
