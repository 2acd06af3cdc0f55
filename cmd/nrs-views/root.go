package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/nrs-views/pkg/cache"
	"github.com/Sternrassler/nrs-views/pkg/client"
	"github.com/Sternrassler/nrs-views/pkg/logging"
	"github.com/Sternrassler/nrs-views/pkg/properties"
	"github.com/Sternrassler/nrs-views/pkg/view"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "nrs-views",
	Short: "Account property and account details views for a node wallet",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(logging.Config{
			Level:  logging.LogLevel(viper.GetString("log-level")),
			Pretty: viper.GetBool("log-pretty"),
		})
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.Help(); err != nil {
			log.Fatal().Err(err).Msg("Error calling help command")
		}
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("NRS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	flags := rootCmd.PersistentFlags()
	flags.String("node-url", "http://localhost:7876", "Base URL of the node API")
	flags.String("redis-addr", "localhost:6379", "Redis address for the response cache and error budget")
	flags.String("user-agent", "nrs-views/0.1.0", "User-Agent sent to the node")
	flags.Duration("cache-ttl", cache.DefaultTTL, "Cache lifetime of node responses, 0 disables caching")
	flags.String("account", "", "Wallet account, RS address or numeric id")
	flags.String("public-key", "", "Wallet public key known locally")
	flags.Int("items-per-page", view.DefaultItemsPerPage, "Rows per properties page")
	flags.String("log-level", "info", `Log level: "debug", "info", "warn" or "error"`)
	flags.Bool("log-pretty", false, "Human-readable console logs")

	if err := viper.BindPFlags(flags); err != nil {
		panic(err)
	}

	rootCmd.AddCommand((&serveCmd{}).Command())
	rootCmd.AddCommand((&propertiesCmd{}).Command())
}

// nodeConfig collects the settings shared by every command.
type nodeConfig struct {
	NodeURL      string
	RedisAddr    string
	UserAgent    string
	CacheTTL     time.Duration
	Account      string
	PublicKey    string
	ItemsPerPage int
}

func loadNodeConfig() nodeConfig {
	return nodeConfig{
		NodeURL:      viper.GetString("node-url"),
		RedisAddr:    viper.GetString("redis-addr"),
		UserAgent:    viper.GetString("user-agent"),
		CacheTTL:     viper.GetDuration("cache-ttl"),
		Account:      viper.GetString("account"),
		PublicKey:    viper.GetString("public-key"),
		ItemsPerPage: viper.GetInt("items-per-page"),
	}
}

// viewerFor splits an account identifier into RS address or numeric id.
func viewerFor(account string) properties.Viewer {
	account = strings.TrimSpace(account)
	if strings.HasPrefix(strings.ToUpper(account), "NXT-") {
		return properties.Viewer{AccountRS: strings.ToUpper(account)}
	}
	return properties.Viewer{Account: account}
}

// newNodeClient connects Redis and builds the node client.
func newNodeClient(cfg nodeConfig) (*client.Client, *redis.Client, error) {
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	clientCfg := client.DefaultConfig(redisClient, cfg.NodeURL, cfg.UserAgent)
	clientCfg.CacheTTL = cfg.CacheTTL

	nodeClient, err := client.New(clientCfg)
	if err != nil {
		redisClient.Close()
		return nil, nil, fmt.Errorf("create node client: %w", err)
	}
	return nodeClient, redisClient, nil
}
