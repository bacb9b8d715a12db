package main

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/angeloszaimis/asset-worker/internal/worker"
)

func newFetchCmd(opts *rootOptions) *cobra.Command {
	var (
		method   string
		headOnly bool
	)

	cmd := &cobra.Command{
		Use:   "fetch <path>",
		Short: "Run the worker once for a path and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}

			binding, err := newAssetsBinding(cmd.Context(), cfg, log, nil)
			if err != nil {
				return err
			}

			return fetch(cmd, worker.Env{Assets: binding}, method, args[0], headOnly)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	cmd.Flags().BoolVarP(&headOnly, "include", "i", false, "Print status and headers only")

	return cmd
}

func fetch(cmd *cobra.Command, env worker.Env, method, target string, headOnly bool) error {
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}

	req, err := http.NewRequestWithContext(cmd.Context(), strings.ToUpper(method), "http://localhost"+target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := worker.Handle(req, env)
	if err != nil {
		return err
	}
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}

	if headOnly {
		return nil
	}

	fmt.Fprintln(out)
	if resp.Body == nil {
		return nil
	}
	_, err = io.Copy(out, resp.Body)
	return err
}
