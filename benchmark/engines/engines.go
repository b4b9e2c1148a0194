// Package engines adapts native JPEG 2000 codecs to the benchmark.Binding interface.
package engines

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-j2kbench/benchmark"
)

// Binding names accepted by Load.
const (
	NameOpenCV   = "opencv"
	NameOpenJPEG = "openjpeg"
)

// ErrUnknownBinding is returned by Load for a name no adapter is registered under.
var ErrUnknownBinding = errors.New("unknown binding")

// ErrUnsupported is returned when an instance cannot honour a frame layout or option.
var ErrUnsupported = errors.New("not supported by binding")

// Names lists the bindings Load knows about.
func Names() []string {
	return []string{NameOpenCV, NameOpenJPEG}
}

// Load initialises the binding named in cfg. It blocks until the codec is usable
// and returns a *benchmark.InitializationError when it is not.
func Load(ctx context.Context, cfg benchmark.BindingConfig, logger *slog.Logger) (benchmark.Binding, error) {
	if logger == nil {
		logger = slog.Default()
	}
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	logger = logger.With("binding", name)

	var (
		b   benchmark.Binding
		err error
	)
	switch name {
	case NameOpenCV:
		b, err = NewOpenCV(ctx, cfg, logger)
	case NameOpenJPEG:
		b, err = NewOpenJPEG(ctx, cfg, logger)
	default:
		err = errors.Wrapf(ErrUnknownBinding, "%q (want one of %s)", cfg.Name, strings.Join(Names(), ", "))
	}
	if err != nil {
		return nil, &benchmark.InitializationError{Binding: name, Err: err}
	}

	attrs := []any{}
	if v, ok := b.(benchmark.Versioner); ok {
		attrs = append(attrs, "version", v.Version())
	}
	logger.Info("binding loaded", attrs...)
	return b, nil
}
