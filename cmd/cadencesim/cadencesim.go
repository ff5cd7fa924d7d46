package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/cadence/pkg/cadence"
	"github.com/cyclopcam/logs"
)

// cadencesim replays a trace of presentation events through a cadence.Layer
// and prints the vote that the layer would hand to the refresh rate arbiter
// after every event. Useful for debugging estimator behavior on captured
// traces without a compositor in the loop.
//
// Trace format: one event per line, "<now> <presentTime>", both in
// nanoseconds. presentTime of 0 means the event had no presentation
// timestamp. Blank lines and lines starting with # are ignored.

func main() {
	logger, err := logs.NewLog()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	parser := argparse.NewParser("cadencesim", "Replay a presentation trace through the frame cadence estimator")
	traceFilename := parser.String("t", "trace", &argparse.Options{Help: "Trace file (lines of '<nowNs> <presentNs>')", Required: true})
	period := parser.String("p", "period", &argparse.Options{Help: "Fastest display mode frame period (eg 8.33ms for 120Hz)", Default: "16.666ms"})
	window := parser.String("w", "window", &argparse.Options{Help: "Active window: a layer is recently active if it updated within this long of 'now'", Default: "1200ms"})
	defaultVote := parser.String("v", "vote", &argparse.Options{Help: "Default vote type (NoVote, Min, Max, Heuristic, ExplicitDefault, ExplicitExactOrMultiple)", Default: "Heuristic"})
	err = parser.Parse(os.Args)
	if err != nil {
		logger.Errorf(parser.Usage(err))
		os.Exit(1)
	}

	if err := run(logger, *traceFilename, *period, *window, *defaultVote); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(logger logs.Log, traceFilename, periodStr, windowStr, voteStr string) error {
	highRefreshRatePeriod, err := time.ParseDuration(periodStr)
	if err != nil {
		return fmt.Errorf("invalid period '%v': %w", periodStr, err)
	}
	activeWindow, err := time.ParseDuration(windowStr)
	if err != nil {
		return fmt.Errorf("invalid window '%v': %w", windowStr, err)
	}
	defaultVote, err := parseVoteType(voteStr)
	if err != nil {
		return err
	}

	trace, err := os.Open(traceFilename)
	if err != nil {
		return err
	}
	defer trace.Close()

	layer := cadence.NewLayer(logger, highRefreshRatePeriod, defaultVote, func(now time.Duration) time.Duration {
		return now - activeWindow
	})

	lastNow := time.Duration(0)
	nEvents := 0
	scanner := bufio.NewScanner(trace)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return fmt.Errorf("line %v: expected '<nowNs> <presentNs>', got '%v'", lineNum, line)
		}
		now, err1 := strconv.ParseInt(fields[0], 10, 64)
		present, err2 := strconv.ParseInt(fields[1], 10, 64)
		if err1 != nil || err2 != nil {
			return fmt.Errorf("line %v: invalid timestamps '%v'", lineNum, line)
		}

		layer.RecordPresent(time.Duration(present), time.Duration(now))
		lastNow = time.Duration(now)
		nEvents++

		vote := layer.RefreshRate(lastNow)
		logger.Infof("event %v: now=%v vote=%v rate=%.2f", nEvents, lastNow, vote.Type, vote.Rate)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if nEvents == 0 {
		return fmt.Errorf("trace '%v' contains no events", traceFilename)
	}

	final := layer.RefreshRate(lastNow)
	logger.Infof("replayed %v events, history depth %v, recently active: %v", nEvents, layer.HistoryLen(), layer.IsRecentlyActive(lastNow))
	logger.Infof("final vote: %v %.2f Hz", final.Type, final.Rate)
	return nil
}

func parseVoteType(s string) (cadence.VoteType, error) {
	switch strings.ToLower(s) {
	case "novote", "none":
		return cadence.VoteNone, nil
	case "min":
		return cadence.VoteMin, nil
	case "max":
		return cadence.VoteMax, nil
	case "heuristic":
		return cadence.VoteHeuristic, nil
	case "explicitdefault":
		return cadence.VoteExplicitDefault, nil
	case "explicitexactormultiple":
		return cadence.VoteExplicitExactOrMultiple, nil
	default:
		return cadence.VoteNone, fmt.Errorf("unknown vote type '%v'", s)
	}
}
