package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/sprout/internal/pipeline"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		req    pipeline.Request
		noBank bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one article and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			req.UseTitleBank = !noBank
			res, err := a.generator().Generate(cmd.Context(), req)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"postId":        res.Post.ID,
				"slug":          res.Post.Slug,
				"status":        res.Post.Status,
				"titleOrigin":   res.Title.Origin,
				"style":         res.Style,
				"attempts":      res.Attempts,
				"autoPublished": res.AutoPublished,
				"content":       res.Content,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Topic, "topic", "", "article title to write about")
	f.StringVar(&req.Keywords, "keywords", "", "comma-separated keywords")
	f.StringVar(&req.TargetAudience, "audience", "", "target audience")
	f.BoolVar(&req.AutoPublish, "publish", false, "publish immediately and notify")
	f.StringVar(&req.WebhookURL, "webhook", "", "webhook to notify when publishing")
	f.BoolVar(&noBank, "no-bank", false, "do not take a title from the title bank")
	return cmd
}
