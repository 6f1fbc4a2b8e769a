/*

Thetamc samples posterior distributions with an adaptive
Metropolis-Hastings sampler. The proposal covariance is calibrated by
repeated short chains; the Raftery-Lewis diagnostic estimates the run
length needed for a quantile.

The basic usage of thetamc looks like this:

	thetamc sample

, this will calibrate and sample the default target, a normal
distribution. The target and all the settings are read from a YAML
file:

	thetamc --config run.yaml quantile

To see all the options run:

	thetamc --help

*/
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/google/uuid"
	"github.com/op/go-logging"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/mrrlab/thetamc/config"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("thetamc")
var formatter = logging.MustStringFormatter(`%{message}`)

// modules are the loggers configured by --loglevel.
var modules = []string{"thetamc", "mcmc", "diag", "estimate", "checkpoint"}

// command-line options
var (
	// application
	app = kingpin.New("thetamc", "adaptive Metropolis-Hastings sampler").Version(version)

	calibrateCmd = app.Command("calibrate", "calibrate the proposal covariance")
	sampleCmd    = app.Command("sample", "calibrate and sample the posterior")
	quantileCmd  = app.Command("quantile", "estimate a quantile with the Raftery-Lewis diagnostic")
	posteriorCmd = app.Command("posterior", "plot the posterior histogram of one parameter")

	configF = app.Flag("config", "YAML configuration file").ExistingFile()

	// overrides of the configuration
	seed        = app.Flag("seed", "random generator seed, default from the configuration, -1 is time based").Int64()
	iterations  = app.Flag("iter", "number of iterations of the final chains").Int()
	chains      = app.Flag("chains", "number of chains to run").Int()
	ortho       = app.Flag("ortho", "change one parameter per iteration").Bool()
	checkpointF = app.Flag("checkpoint", "checkpoint database file").String()
	parameter   = app.Flag("parameter", "parameter for the quantile and the posterior").Default("-1").Int()
	plotF       = posteriorCmd.Flag("out", "write plot to a file").String()
	accept      = app.Flag("accept", "report acceptance rate every N iterations").Default("0").Int()

	// technical
	nThreads   = app.Flag("nt", "number of threads to use").Int()
	cpuProfile = app.Flag("cpuprofile", "write cpu profile to file").String()

	// output
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
	jsonF = app.Flag("json", "write json output to a file").String()
)

// applyFlags overrides the configuration with the command line.
func applyFlags(cfg *config.Config) error {
	if *seed == -1 {
		cfg.Seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	} else if *seed != 0 {
		cfg.Seed = *seed
	}
	if *iterations > 0 {
		cfg.Sampling.Iterations = *iterations
	}
	if *chains > 0 {
		cfg.Sampling.Chains = *chains
	}
	if *ortho {
		cfg.Sampling.Ortho = true
	}
	if *checkpointF != "" {
		cfg.Checkpoint.Path = *checkpointF
	}
	if *parameter >= 0 {
		cfg.Quantile.Parameter = *parameter
		cfg.Histogram.Parameter = *parameter
	}
	if *plotF != "" {
		cfg.Histogram.Output = *plotF
	}
	return cfg.Validate()
}

// setupLogging configures the formatter, the backend and the levels.
// The returned function closes the log file.
func setupLogging() (func(), error) {
	logging.SetFormatter(formatter)

	closer := func() {}
	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return closer, err
		}
		closer = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		return closer, err
	}
	for _, m := range modules {
		logging.SetLevel(level, m)
	}
	return closer, nil
}

// writeSummary writes the summary in json format.
func writeSummary(summary *RunSummary, fn string) {
	j, err := json.Marshal(summary)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	if err := os.WriteFile(fn, j, 0666); err != nil {
		log.Error("Error creating json output file:", err)
	}
}

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog, err := setupLogging()
	defer closeLog()
	if err != nil {
		log.Fatal("Error setting up logging:", err)
	}

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	cfg, err := config.Load(*configF)
	if err != nil {
		log.Fatal(err)
	}
	if err := applyFlags(cfg); err != nil {
		log.Fatal(err)
	}
	log.Infof("Random seed=%v", cfg.Seed)

	runtime.GOMAXPROCS(*nThreads)
	effectiveNThreads := runtime.GOMAXPROCS(0)
	log.Infof("Using threads: %d.", effectiveNThreads)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal(err)
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	startTime := time.Now()
	id := uuid.New()
	log.Infof("Run id: %s", id)
	r, err := newRunner(cfg, id)
	if err != nil {
		log.Fatal(err)
	}
	r.accPeriod = *accept

	switch command {
	case calibrateCmd.FullCommand():
		_, err = r.calibration(ctx)
	case sampleCmd.FullCommand():
		err = r.sample(ctx)
	case quantileCmd.FullCommand():
		err = r.quantile(ctx)
	case posteriorCmd.FullCommand():
		err = r.posterior(ctx)
	}
	if err != nil {
		log.Error(err)
	}

	deltaT := time.Since(startTime)
	log.Noticef("Running time: %v", deltaT)

	summary := r.summary
	summary.ID = id.String()
	summary.Version = version
	summary.CommandLine = os.Args
	summary.Command = command
	summary.Seed = cfg.Seed
	summary.NThreads = effectiveNThreads
	summary.TotalTime = deltaT.Seconds()
	if *jsonF != "" {
		writeSummary(summary, *jsonF)
	}
	if err != nil {
		pprof.StopCPUProfile()
		stop()
		closeLog()
		os.Exit(1)
	}
}
