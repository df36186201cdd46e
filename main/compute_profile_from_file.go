package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/kpaschen/quickmp/lib"
	"github.com/kpaschen/quickmp/lib/accel"
	"github.com/kpaschen/quickmp/lib/datatypes"
	"github.com/kpaschen/quickmp/lib/reporter"
	"github.com/kpaschen/quickmp/lib/settings"
)

func readSeries(filename string) []float64 {
	file, err := os.Open(filename)
	if err != nil {
		panic(err)
	}
	defer file.Close()
	lineCount := 0
	data := make([]float64, 0)
	reader := bufio.NewReader(file)
	for {
		line, err := reader.ReadString('\n')
		if len(line) == 0 {
			break
		}
		line = strings.TrimSuffix(line, "\n")
		lineCount++

		// parse floats out of line with strconv
		for _, p := range strings.Fields(line) {
			v, perr := strconv.ParseFloat(p, 64)
			if perr != nil {
				panic(fmt.Errorf("on line %d of %s, failed to parse %s into a float: %v",
					lineCount, filename, p, perr))
			}
			data = append(data, v)
		}

		if err != nil {
			break
		} // err is usually io.EOF
	}
	return data
}

func buildEngine(cfg settings.QuickmpSettings) lib.Engine {
	switch cfg.Backend {
	case settings.BACKEND_SIM:
		return lib.NewAccelEngine(accel.NewSimRuntime(1), cfg)
	default:
		return lib.NewCPUEngine()
	}
}

func main() {
	filename := flag.String("filename", "", "Name of the file to read the time series from")
	filename2 := flag.String("filename2", "", "Second series for an ab-join (optional)")
	subsequenceLength := flag.Int("m", 128, "subsequence length for the profile")
	backend := flag.String("backend", settings.BACKEND_CPU, "engine backend: cpu or sim")
	raw := flag.Bool("raw", false, "use raw euclidean distances instead of z-normalized ones")
	resultsDirectory := flag.String("results", ".", "where to write the profile csv")
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile here")
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			panic(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	cfg := settings.QuickmpSettings{
		Backend:           *backend,
		SubsequenceLength: *subsequenceLength,
		RawDistance:       *raw,
		ResultsDirectory:  *resultsDirectory,
	}.ComputeSettingsFields()

	series := readSeries(*filename)

	engine := buildEngine(cfg)
	if err := engine.Initialize(cfg.DeviceStart, cfg.DeviceCount); err != nil {
		panic(err)
	}
	defer engine.Finalize()

	var distances []float64
	var err error
	if *filename2 != "" {
		series2 := readSeries(*filename2)
		distances, err = engine.ABJoin(series, series2, cfg.SubsequenceLength, 0, !cfg.RawDistance)
	} else {
		distances, err = engine.SelfJoin(series, cfg.SubsequenceLength, 0, !cfg.RawDistance)
	}
	if err != nil {
		fmt.Printf("caught error: %v\n", err)
		return
	}

	profile := &datatypes.Profile{
		MetricName:        *filename,
		SubsequenceLength: cfg.SubsequenceLength,
		ComputedAt:        time.Now().UTC(),
		Distances:         distances,
	}
	rep := reporter.NewCsvReporter(cfg.ResultsDirectory)
	if err := rep.AddProfile(profile); err != nil {
		fmt.Printf("failed to write profile: %v\n", err)
		return
	}

	fmt.Printf("profile has %d positions, motif at %d, discord at %d\n",
		len(distances), profile.MinIndex(), profile.MaxIndex())
}
