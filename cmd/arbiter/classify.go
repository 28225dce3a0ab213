package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/arbiter/internal/engine"
	"github.com/JaimeStill/arbiter/internal/llm"
)

type classifyResult struct {
	Source     string           `json:"source"`
	DocumentID string           `json:"document_id"`
	Decision   *engine.Decision `json:"decision,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func newClassifyCmd(a *app) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "classify <request.json>...",
		Short: "Classify content-map requests and print one decision per line",
		Long: `Each file holds one classification request or an array of requests.
Requests that carry their own drafts never call a model. With --offline,
requests without drafts fail instead of calling the configured provider.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reqs, sources, err := readRequests(args)
			if err != nil {
				return err
			}

			online := !offline && slices.ContainsFunc(reqs, func(r engine.Request) bool {
				return len(r.Drafts) == 0
			})

			defer a.close()
			eng, err := a.engine(cmd.Context(), online)
			if errors.Is(err, llm.ErrMissingAPIKey) {
				return fmt.Errorf("%w (requests without drafts need a model; pass --offline to skip them)", err)
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			failed := 0
			for _, res := range eng.ClassifyBatch(cmd.Context(), reqs) {
				out := classifyResult{
					Source:     sources[res.Index],
					DocumentID: res.DocumentID,
					Decision:   res.Decision,
				}
				if res.Err != nil {
					failed++
					out.Error = res.Err.Error()
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(reqs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "never call a model")
	return cmd
}

// readRequests decodes every file, returning the requests with the file each
// came from.
func readRequests(paths []string) ([]engine.Request, []string, error) {
	var (
		reqs    []engine.Request
		sources []string
	)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, err
		}

		var batch []engine.Request
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &batch); err != nil {
				return nil, nil, fmt.Errorf("decode %s: %w", path, err)
			}
		} else {
			var req engine.Request
			if err := json.Unmarshal(data, &req); err != nil {
				return nil, nil, fmt.Errorf("decode %s: %w", path, err)
			}
			batch = []engine.Request{req}
		}

		for range batch {
			sources = append(sources, path)
		}
		reqs = append(reqs, batch...)
	}

	return reqs, sources, nil
}
