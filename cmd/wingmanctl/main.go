// Command wingmanctl is a thin administrative CLI against a running
// wingmand Control API, built with cobra the way testctl's command tree is
// built in internal/testctl/cobra_root.go.
package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var addr string
	root := &cobra.Command{
		Use:           "wingmanctl",
		Short:         "Administrative client for a running wingmand Control API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", envOr("WINGMANCTL_ADDR", "http://127.0.0.1:6567"), "wingmand Control API base URL")

	newC := func() *client { return newClient(addr) }

	root.AddCommand(healthCmd(newC))
	root.AddCommand(downloadCmd(newC))
	root.AddCommand(inferenceCmd(newC))
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func healthCmd(newC func() *client) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the daemon's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newC().get("/api/health", nil)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
}

func downloadCmd(newC func() *client) *cobra.Command {
	cmd := &cobra.Command{Use: "download", Short: "Manage model downloads"}

	var modelRepo, filePath string
	enqueue := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a model file for download",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"modelRepo": {modelRepo}, "filePath": {filePath}}
			resp, err := newC().get("/api/downloads/enqueue", q)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	enqueue.Flags().StringVar(&modelRepo, "model-repo", "", "Hugging Face repo id, e.g. TheBloke/Llama-2-7B-GGUF")
	enqueue.Flags().StringVar(&filePath, "file-path", "", "file within the repo, e.g. llama-2-7b.Q4_K_M.gguf")

	list := &cobra.Command{
		Use:   "list",
		Short: "List download items",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newC().get("/api/downloads", nil)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	var cancelModelRepo, cancelFilePath string
	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel an in-progress download",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"modelRepo": {cancelModelRepo}, "filePath": {cancelFilePath}}
			resp, err := newC().get("/api/downloads/cancel", q)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cancel.Flags().StringVar(&cancelModelRepo, "model-repo", "", "Hugging Face repo id")
	cancel.Flags().StringVar(&cancelFilePath, "file-path", "", "file within the repo")

	cmd.AddCommand(enqueue, list, cancel)
	return cmd
}

func inferenceCmd(newC func() *client) *cobra.Command {
	cmd := &cobra.Command{Use: "inference", Short: "Manage inference sessions"}

	var modelRepo, filePath, alias string
	var port, contextSize, gpuLayers int
	start := &cobra.Command{
		Use:   "start",
		Short: "Start an inference session for a downloaded model",
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"modelRepo": {modelRepo}, "filePath": {filePath}}
			if alias != "" {
				q.Set("alias", alias)
			}
			if port != 0 {
				q.Set("port", strconv.Itoa(port))
			}
			if contextSize != 0 {
				q.Set("contextSize", strconv.Itoa(contextSize))
			}
			if gpuLayers != 0 {
				q.Set("gpuLayers", strconv.Itoa(gpuLayers))
			}
			resp, err := newC().get("/api/inference/start", q)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	start.Flags().StringVar(&modelRepo, "model-repo", "", "Hugging Face repo id")
	start.Flags().StringVar(&filePath, "file-path", "", "file within the repo")
	start.Flags().StringVar(&alias, "alias", "", "session alias (defaults to file-path)")
	start.Flags().IntVar(&port, "port", 0, "port the runtime should bind (default 6567)")
	start.Flags().IntVar(&contextSize, "context-size", 0, "context size")
	start.Flags().IntVar(&gpuLayers, "gpu-layers", 0, "GPU layers to offload (-1 = all)")

	var stopAlias string
	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running inference session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newC().get("/api/inference/stop", url.Values{"alias": {stopAlias}})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	stop.Flags().StringVar(&stopAlias, "alias", "", "session alias")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show inference session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newC().get("/api/inference", nil)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	restart := &cobra.Command{
		Use:   "restart",
		Short: "Restart the currently inferring session",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := newC().get("/api/inference/restart", nil)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}

	cmd.AddCommand(start, stop, status, restart)
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
