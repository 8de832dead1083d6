// Command llm-client sends prompts to a RemoteLLM server and prints the
// generations, one block per prompt.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/burdiyan/go/mainutil"
	"github.com/peterbourgon/ff/v4"
	"github.com/sweetpotato0/remote-llm/config"
	"github.com/sweetpotato0/remote-llm/llm"
	"github.com/sweetpotato0/remote-llm/pkg/logging"
	"github.com/sweetpotato0/remote-llm/remote"
)

func main() {
	const envVarPrefix = "REMOTE_LLM"

	mainutil.Run(func() error {
		ctx := mainutil.TrapSignals()

		fs := flag.NewFlagSet("llm-client", flag.ExitOnError)
		var (
			configPath = fs.String("config", "", "Path to the YAML config file")
			target     = fs.String("target", "", "Server address, overrides client.target")
			stop       = fs.String("stop", "", "Comma separated stop sequences")
			async      = fs.Bool("async", false, "Use the non-blocking generation path")
			showType   = fs.Bool("type", false, "Print the remote backend type and exit")
			timeout    = fs.Duration("timeout", 2*time.Minute, "Overall request timeout")
		)
		fs.Usage = func() {
			fmt.Fprintf(fs.Output(), "usage: llm-client [flags] prompt...\n")
			fs.PrintDefaults()
		}

		err := ff.Parse(fs, slices.Clone(os.Args[1:]), ff.WithEnvVarPrefix(envVarPrefix))
		if err != nil {
			if errors.Is(err, ff.ErrHelp) {
				fs.Usage()
				return nil
			}
			return err
		}

		cfg, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		if *target != "" {
			cfg.Client.Target = *target
		}
		logger := logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)

		conn, err := remote.Dial(cfg.Client.Target)
		if err != nil {
			return err
		}
		defer conn.Close()

		client := remote.NewClient(conn,
			remote.WithTypePrefix(cfg.Client.TypePrefix),
			remote.WithTypeTimeout(cfg.Client.TypeTimeout),
			remote.WithClientLogger(logger),
		)

		ctx, cancel := context.WithTimeout(ctx, *timeout)
		defer cancel()

		if *showType {
			t, err := client.TypeContext(ctx)
			if err != nil {
				return err
			}
			fmt.Println(t)
			return nil
		}

		prompts := fs.Args()
		if len(prompts) == 0 {
			fs.Usage()
			return errors.New("at least one prompt is required")
		}

		var res *llm.Result
		if *async {
			res, err = client.GenerateAsync(ctx, prompts, splitStop(*stop)).Await(ctx)
		} else {
			res, err = client.Generate(ctx, prompts, splitStop(*stop))
		}
		if err != nil {
			return err
		}
		printResult(os.Stdout, prompts, res)
		return nil
	})
}

func splitStop(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func printResult(w io.Writer, prompts []string, res *llm.Result) {
	for i, batch := range res.Generations {
		fmt.Fprintf(w, "### %s\n", prompts[i])
		for j, g := range batch {
			fmt.Fprintf(w, "[%d] %s\n", j, g.Text)
			if g.Info != "" {
				fmt.Fprintf(w, "    info: %s\n", g.Info)
			}
		}
	}
}
