// kws: build keyword-spotting topologies and classify WAV clips with them
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"kws_lib/audio"
	"kws_lib/nn"
	"kws_lib/nn/models"
	"kws_lib/nn/plain"
	"kws_lib/utils"
)

var (
	title = color.New(color.FgCyan, color.Bold)
	good  = color.New(color.FgGreen)
	warn  = color.New(color.FgYellow)
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	config     string
	wavs       string
	weightsIn  string
	weightsOut string
	seed       int64
	jsonOut    bool
	topK       int
	verbose    bool
	arch       string
	sizeInfo   string
	sampleRate int
	clipMs     int
	windowMs   int
	strideMs   int
	dctCount   int
	labelCount int
	logLevel   string
}

func run(args []string, stdout io.Writer) error {
	start := time.Now()
	var f cliFlags
	fs := flag.NewFlagSet("kws", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "YAML config file")
	fs.StringVar(&f.wavs, "wav", "", "Comma separated WAV clips to classify")
	fs.StringVar(&f.weightsIn, "weights", "", "Weights JSON file to load instead of random init")
	fs.StringVar(&f.weightsOut, "weights_out", "", "Write the network weights to this JSON file")
	fs.Int64Var(&f.seed, "seed", 1, "Seed for random weight init")
	fs.BoolVar(&f.jsonOut, "json", false, "Print the topology as JSON instead of a table")
	fs.IntVar(&f.topK, "topk", 3, "Top predictions to show")
	fs.BoolVar(&f.verbose, "verbose", false, "Print timing statistics")
	fs.StringVar(&f.arch, "model_architecture", "", "One of micro_speech, custom, custom2, ds_cnn")
	fs.StringVar(&f.sizeInfo, "model_size_info", "", "ds_cnn layer sizes, e.g. \"2 64 10 4 2 2 64 3 3 1 1\"")
	fs.IntVar(&f.sampleRate, "sample_rate", 0, "Expected sample rate of the wavs")
	fs.IntVar(&f.clipMs, "clip_duration_ms", 0, "Expected duration in milliseconds of the wavs")
	fs.IntVar(&f.windowMs, "window_size_ms", 0, "How long each spectrogram timeslice is")
	fs.IntVar(&f.strideMs, "window_stride_ms", 0, "How far to move in time between timeslices")
	fs.IntVar(&f.dctCount, "dct_coefficient_count", 0, "How many bins to use for the fingerprint")
	fs.IntVar(&f.labelCount, "label_count", 0, "Number of output classes")
	fs.StringVar(&f.logLevel, "log_level", "", "debug, info, warn or error")
	fs.SetOutput(stdout)
	if err := fs.Parse(args); err != nil {
		return err
	}
	utils.Output = stdout
	utils.Verbose = f.verbose

	var stats utils.TimingStats
	t0 := time.Now()
	cfg, err := loadConfig(fs, &f)
	if err != nil {
		return err
	}
	logger, err := utils.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if err := utils.ValidateConfig(cfg); err != nil {
		return err
	}
	ms, err := nn.PrepareModelSettings(cfg.AudioSettings())
	if err != nil {
		return err
	}
	if ms.Degenerate() {
		warn.Fprintf(stdout, "Clip of %d samples is shorter than one %d sample window: fingerprint is empty\n",
			ms.DesiredSamples, ms.WindowSizeSamples)
	}
	stats.ConfigTime = time.Since(t0)

	arch, err := models.ParseArchitecture(cfg.ModelArchitecture)
	if err != nil {
		return err
	}
	cache, err := models.NewCache(len(models.Architectures()), models.WithLogger(logger))
	if err != nil {
		return err
	}

	t0 = time.Now()
	topo, err := cache.Build(ms, arch, cfg.ModelSizeInfo)
	if err != nil {
		return err
	}
	stats.BuildTime = time.Since(t0)
	logger.Info("built topology",
		zap.String("model", topo.Name()),
		zap.Int("layers", topo.Len()),
		zap.Int("params", topo.TotalParams()))

	if f.jsonOut {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(topo); err != nil {
			return err
		}
	} else {
		title.Fprintf(stdout, "Keyword spotting model %s\n", topo.Name())
		fmt.Fprintf(stdout, "Fingerprint: %d frames x %d bins = %d values\n\n",
			ms.SpectrogramLength, ms.DCTCoefficientCount, ms.FingerprintSize)
		if err := topo.Summary(stdout); err != nil {
			return err
		}
	}

	if f.wavs == "" && f.weightsOut == "" && f.weightsIn == "" {
		return nil
	}

	t0 = time.Now()
	net, err := network(topo, &f, logger)
	if err != nil {
		return err
	}
	stats.InstantiateTime = time.Since(t0)

	if f.weightsOut != "" {
		if err := utils.SaveWeights(f.weightsOut, net.Weights()); err != nil {
			return err
		}
		good.Fprintf(stdout, "Saved weights to %s\n", f.weightsOut)
	}

	for _, path := range splitList(f.wavs) {
		t0 = time.Now()
		clip, err := audio.LoadClip(path)
		if err != nil {
			return err
		}
		fp, err := audio.Fingerprint(clip, ms)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		stats.FingerprintTime += time.Since(t0)

		t0 = time.Now()
		_, probs, err := net.Predict(fp)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		stats.ForwardPassTime += time.Since(t0)
		logger.Debug("classified clip", zap.String("path", path), zap.Duration("duration", clip.Duration()))

		showResults(stdout, path, cfg, probs, f.topK)
	}

	stats.TotalTime = time.Since(start)
	utils.PrintTimingStats(&stats)
	return nil
}

// loadConfig reads the YAML file, if any, and applies explicitly set flags
// on top of it.
func loadConfig(fs *flag.FlagSet, f *cliFlags) (*utils.Config, error) {
	cfg := utils.DefaultConfig()
	if f.config != "" {
		loaded, err := utils.LoadConfig(f.config)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "model_architecture":
			cfg.ModelArchitecture = f.arch
		case "model_size_info":
			var info models.SizeInfo
			if info, err = utils.ParseSizeInfo(f.sizeInfo); err == nil {
				cfg.ModelSizeInfo = info
			}
		case "sample_rate":
			cfg.SampleRate = f.sampleRate
		case "clip_duration_ms":
			cfg.ClipDurationMs = f.clipMs
		case "window_size_ms":
			cfg.WindowSizeMs = f.windowMs
		case "window_stride_ms":
			cfg.WindowStrideMs = f.strideMs
		case "dct_coefficient_count":
			cfg.DCTCoefficientCount = f.dctCount
		case "label_count":
			if f.labelCount != len(cfg.Labels) {
				cfg.Labels = nil
			}
			cfg.LabelCount = f.labelCount
		case "log_level":
			cfg.LogLevel = f.logLevel
		}
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func network(topo *nn.Topology, f *cliFlags, logger *zap.Logger) (*plain.Network, error) {
	if f.weightsIn == "" {
		return plain.Instantiate(topo, f.seed, plain.WithLogger(logger))
	}
	mw, err := utils.LoadWeights(f.weightsIn)
	if err != nil {
		return nil, err
	}
	return plain.LoadWeights(topo, mw, plain.WithLogger(logger))
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func showResults(w io.Writer, path string, cfg *utils.Config, probs []float64, k int) {
	indices := topKIndices(probs, k)
	title.Fprintf(w, "\n%s\n", path)
	for i, idx := range indices {
		c := fmt.Sprintf("  %d. %s: %.4f\n", i+1, cfg.Label(idx), probs[idx])
		if i == 0 {
			good.Fprint(w, c)
		} else {
			fmt.Fprint(w, c)
		}
	}
}

func topKIndices(vals []float64, k int) []int {
	if k > len(vals) {
		k = len(vals)
	}
	if k < 0 {
		k = 0
	}
	indices := make([]int, k)
	used := make(map[int]bool)
	for i := 0; i < k; i++ {
		maxIdx, maxVal := -1, math.Inf(-1)
		for j, v := range vals {
			if !used[j] && v > maxVal {
				maxVal, maxIdx = v, j
			}
		}
		indices[i] = maxIdx
		used[maxIdx] = true
	}
	return indices
}
