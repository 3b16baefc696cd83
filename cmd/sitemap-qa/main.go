package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/common-nighthawk/go-figure"

	"github.com/Akotliar/sitemap-qa-sub000/internal/common"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/discovery"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/interface/cli"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/interface/presenter"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/metrics"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/output"
	"github.com/Akotliar/sitemap-qa-sub000/pkg/pipeline"
)

const (
	exitOK               = 0
	exitError            = 1
	exitDiscoveryFailure = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	config, err := cli.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if config.Version {
		fmt.Println(common.PV.String())
		return exitOK
	}

	logger, err := cli.BuildLogger(config.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer logger.Sync()

	if !config.ShowDashboard {
		figure.NewFigure("sitemap-qa", "", true).Print()
		fmt.Println()
	}

	assembler := cli.NewAssembler(config)
	p, err := assembler.AssemblePipeline(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if config.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(config.MetricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "Metrics server error: %v\n", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	var report *pipeline.Report
	var runErr error

	if config.ShowDashboard {
		dashboard := presenter.NewDashboard(config.Args.URL)
		p.SetObserver(dashboard)

		program := tea.NewProgram(dashboard, tea.WithAltScreen())
		done := make(chan struct{})
		go func() {
			report, runErr = p.Run(ctx, config.Args.URL)
			program.Quit()
			close(done)
		}()
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
			return exitError
		}
		// Quitting the TUI early cancels the run before the report is read.
		cancel()
		<-done
	} else {
		bar := presenter.NewProgressBar()
		p.SetObserver(bar)
		report, runErr = p.Run(ctx, config.Args.URL)
		bar.Wait()
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		if report != nil && len(report.Timings) > 0 {
			output.NewConsoleRenderer(os.Stdout).Render(report)
		}
		if errors.Is(runErr, discovery.ErrNoSitemap) {
			return exitDiscoveryFailure
		}
		return exitError
	}

	output.NewConsoleRenderer(os.Stdout).Render(report)

	if config.OutputFile != "" {
		writer, err := output.NewJSONLWriter(config.OutputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		if err := writer.WriteAll(report.Summary.Findings); err != nil {
			writer.Close()
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
		writer.Close()
	}

	if config.HTMLFile != "" {
		if err := output.WriteHTMLFile(config.HTMLFile, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
	}

	return exitOK
}
