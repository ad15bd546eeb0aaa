// Command horariumd is the host process: it loops receive -> run ->
// emit -> emit-final (§6's "process surface"), wiring together
// ProblemInstance, Evaluator, a driver.Algorithm, and the intake/emit
// external collaborators. Everything in this file is host-process
// plumbing; none of it is part of the core's contract.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"

	"smuggr.xyz/horarium/core/driver"
	"smuggr.xyz/horarium/core/jobrunner"
	"smuggr.xyz/horarium/internal/emit"
	"smuggr.xyz/horarium/internal/intake"
	"smuggr.xyz/horarium/internal/testgen"
)

func main() {
	var (
		mode        = flag.String("mode", "file", "transport: file or redis")
		intakeDir   = flag.String("intake-dir", "./jobs/in", "directory polled for job files (file mode)")
		emitDir     = flag.String("emit-dir", "./jobs/out", "directory written with progress snapshots (file mode)")
		redisAddr   = flag.String("redis-addr", "127.0.0.1:6379", "redis address (redis mode)")
		queueKey    = flag.String("redis-queue", "horarium:jobs", "redis list key jobs are BRPOP'd from")
		keyFmt      = flag.String("redis-key-fmt", "horarium:snapshot:%s", "redis key format for the latest snapshot")
		channelFmt  = flag.String("redis-channel-fmt", "horarium:progress:%s", "redis pubsub channel format for live snapshots")
		cancelFmt   = flag.String("redis-cancel-fmt", "horarium:cancel:%s", "redis key format for a job's cancellation flag")
		algorithm   = flag.String("algorithm", "adaptive", "search strategy: adaptive or baseline")
		logLevel    = flag.String("log-level", "info", "log level")
		generate    = flag.Bool("generate", false, "write one synthetic job file into intake-dir (file mode) and exit")
	)
	flag.Parse()

	log := hclog.New(&hclog.LoggerOptions{
		Name:  "horariumd",
		Level: hclog.LevelFromString(*logLevel),
	})

	if *generate {
		if err := runGenerate(*intakeDir, log); err != nil {
			log.Error("generate failed", "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	newAlgo := func() driver.Algorithm {
		if *algorithm == "baseline" {
			return driver.NewBaseline(log)
		}
		return driver.NewAdaptive(driver.DefaultConfig(), log)
	}
	runner := jobrunner.New(log, newAlgo)

	var in jobrunner.Intake
	var out jobrunner.ProgressSender

	switch *mode {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer client.Close()
		in = intake.NewRedisIntake(client, *queueKey, *cancelFmt, log)
		out = emit.NewRedisEmitter(client, *keyFmt, *channelFmt, log)
	default:
		if err := os.MkdirAll(*intakeDir, 0o755); err != nil {
			log.Error("failed to prepare intake directory", "error", err)
			os.Exit(1)
		}
		if err := os.MkdirAll(*emitDir, 0o755); err != nil {
			log.Error("failed to prepare emit directory", "error", err)
			os.Exit(1)
		}
		in = intake.NewFileIntake(*intakeDir, log)
		out = emit.NewFileEmitter(*emitDir, log)
	}

	if err := runner.Serve(ctx, in, out); err != nil {
		log.Error("serve exited with error", "error", err)
		os.Exit(1)
	}
}

func runGenerate(dir string, log hclog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	rng := newSeededRand()
	jobID := uuid.NewString()
	job := testgen.Generate(rng, testgen.DefaultConfig(), jobID)
	log.Info("generated synthetic job", "summary", testgen.Describe(job))

	return writeJobFile(dir, jobID, job)
}
