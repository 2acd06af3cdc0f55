package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/nrs-views/pkg/nodeapi"
	"github.com/Sternrassler/nrs-views/pkg/pagination"
	"github.com/Sternrassler/nrs-views/pkg/properties"
	"github.com/spf13/cobra"
)

type propertiesCmd struct {
	direction string
	page      int
	all       bool
}

func (c *propertiesCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "properties",
		Short: "Print account properties of the wallet account as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadNodeConfig()
			if cfg.Account == "" {
				return fmt.Errorf("--account is required")
			}

			nodeClient, redisClient, err := newNodeClient(cfg)
			if err != nil {
				return err
			}
			defer nodeClient.Close()
			defer redisClient.Close()

			fetcher := properties.NewFetcher(nodeapi.New(nodeClient), viewerFor(cfg.Account))
			return c.Run(cmd.Context(), fetcher, cfg.ItemsPerPage, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&c.direction, "type", string(properties.Outgoing), `"incoming" or "outgoing"`)
	cmd.Flags().IntVar(&c.page, "page", 1, "Page number")
	cmd.Flags().BoolVar(&c.all, "all", false, "Walk every page")
	return cmd
}

// propertyRow is the JSON shape of one printed row.
type propertyRow struct {
	Account   string                    `json:"account"`
	AccountRS string                    `json:"accountRS,omitempty"`
	Property  string                    `json:"property"`
	Value     string                    `json:"value"`
	Actions   []properties.ActionIntent `json:"actions"`
}

type propertiesOutput struct {
	Direction properties.Direction `json:"direction"`
	Page      int                  `json:"page,omitempty"`
	HasMore   bool                 `json:"hasMore"`
	Header    string               `json:"header"`
	Items     []propertyRow        `json:"items"`
}

func (c *propertiesCmd) Run(ctx context.Context, fetcher *properties.Fetcher, perPage int, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = os.Stdout
	}

	direction, err := properties.ParseDirection(c.direction)
	if err != nil {
		return err
	}

	result := propertiesOutput{Direction: direction, Header: properties.HeaderLabel(direction)}

	var items []properties.PropertyViewModel
	if c.all {
		cfg := pagination.DefaultConfig()
		if perPage > 0 {
			cfg.PerPage = perPage
		}
		items, err = fetcher.FetchAll(ctx, direction, cfg)
	} else {
		var page properties.Page
		page, err = fetcher.Fetch(ctx, direction, c.page, perPage)
		items = page.Items
		result.Page = c.page
		result.HasMore = page.HasMore
	}
	if err != nil {
		return err
	}

	result.Items = make([]propertyRow, 0, len(items))
	for _, item := range items {
		row := propertyRow{
			Account:   item.Account.Label(),
			AccountRS: item.Account.AccountRS,
			Property:  item.Record.Property,
			Value:     item.Record.Value,
		}
		if item.Update != nil {
			row.Actions = append(row.Actions, *item.Update)
		}
		row.Actions = append(row.Actions, item.Delete)
		result.Items = append(result.Items, row)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(result)
}
