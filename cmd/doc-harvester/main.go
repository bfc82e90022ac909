package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"doc-harvester/pkg/config"
	"doc-harvester/pkg/models"
	"doc-harvester/pkg/pipeline"
	"doc-harvester/pkg/report"
)

const version = "0.3.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runPipeline(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		fmt.Printf("doc-harvester %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`doc-harvester - URL acquisition and text extraction pipeline

Usage:
  doc-harvester <command> [options]

Commands:
  run         Fetch and extract every URL in the input CSV
  validate    Validate configuration file
  version     Show version info

Run 'doc-harvester <command> -h' for command-specific help.`)
}

// loadConfig loads and parses the config file. A missing file is not an
// error: the zero config plus Validate defaults is a usable setup.
func loadConfig(path string) (*config.AppConfig, error) {
	var cfg config.AppConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// setupLogger creates a configured logrus.Logger with the given log level.
func setupLogger(logLevelStr string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})
	log.SetLevel(logrus.InfoLevel)

	level, err := logrus.ParseLevel(logLevelStr)
	if err != nil {
		log.Warnf("Invalid log level '%s', using default 'info'. Error: %v", logLevelStr, err)
	} else {
		log.SetLevel(level)
	}
	return log
}

// runPipeline handles the run subcommand
func runPipeline(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")
	inputFile := fs.String("input", "", "Path to input CSV containing URLs (required)")
	outputFile := fs.String("output", "", "Report CSV path (overrides config report_path)")
	logLevel := fs.String("loglevel", "info", "Log level (debug, info, warn, error, fatal)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-harvester run [options]\n\nOptions:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n  doc-harvester run -input urls.csv\n")
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -input is required")
		fs.Usage()
		os.Exit(1)
	}

	log := setupLogger(*logLevel)

	appCfg, err := loadConfig(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	warnings, _ := appCfg.Validate()
	for _, w := range warnings {
		log.Warn(w)
	}
	if *outputFile != "" {
		appCfg.ReportPath = *outputFile
	}

	urls, err := report.ReadURLs(*inputFile)
	if err != nil {
		log.Fatalf("Input error: %v", err)
	}
	log.Infof("Read %d URL(s) from %s", len(urls), *inputFile)
	if len(urls) == 0 {
		log.Warn("No URLs found in input, nothing to do")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		sig := <-sigChan
		log.Warnf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig = <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded. Forcing exit.")
			os.Exit(1)
		}
	}()

	start := time.Now()
	logEntry := log.WithField("component", "pipeline")
	records := pipeline.New(appCfg, logEntry).Run(ctx, urls)

	if err := report.WriteReport(appCfg.ReportPath, records); err != nil {
		log.Fatalf("Report error: %v", err)
	}

	summarize(records, log)
	log.Infof("Done in %v, report written to %s", time.Since(start).Round(time.Millisecond), appCfg.ReportPath)
}

// summarize logs the status distribution of the finished run.
func summarize(records []*models.Record, log *logrus.Logger) {
	counts := make(map[models.Status]int)
	for _, rec := range records {
		counts[rec.Status]++
	}
	log.WithFields(logrus.Fields{
		"total":             len(records),
		"success":           counts[models.StatusSuccess],
		"failed_download":   counts[models.StatusFailedDownload],
		"skipped_robots":    counts[models.StatusSkippedRobots],
		"failed_processing": counts[models.StatusFailedProcessing],
	}).Info("Run summary")
}

// runValidate handles the validate subcommand
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: doc-harvester validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	os.Exit(doValidate(*configFile, os.Stdout, os.Stderr))
}

// doValidate performs validation and writes output to the provided writers.
// Returns an exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	warnings, err := appCfg.Validate()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}
	fmt.Fprintln(stdout, "Configuration valid.")
	return 0
}
