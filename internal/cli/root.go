package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/cocosci/fishchain/internal/cache"
	"github.com/cocosci/fishchain/internal/condition"
	"github.com/cocosci/fishchain/internal/estimate"
	"github.com/cocosci/fishchain/internal/model"
	"github.com/cocosci/fishchain/internal/score"
	"github.com/cocosci/fishchain/internal/util"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Version is the fishchain release
const Version = "v0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fishchain",
	Short: "fishchain - belief elicitation and credible intervals for fishing chains",
	Long: `fishchain collects a participant's belief about the color distribution of
fish in a lake, estimates a credible interval for each color, and scores
the belief against the lake's true proportions.

Beliefs can be passed down a chain of participants through the chain
service, as free text or as a composed belief message.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of fishchain.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fishchain %s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fishchain/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("output.verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in .env, the config file and ENV variables
func initConfig() {
	_ = godotenv.Load()

	if err := setDefaults(model.DefaultConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading defaults: %v\n", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		viper.AddConfigPath(filepath.Join(home, ".fishchain"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// FISHCHAIN_CHAIN_BASE_URL overrides chain.base_url
	viper.SetEnvPrefix("FISHCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// setDefaults registers every field of cfg with viper so env overrides
// reach keys absent from the config file
func setDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	for key, value := range flatten("", tree) {
		viper.SetDefault(key, value)
	}

	// omitempty fields still need a key for env lookups
	viper.SetDefault("conditions", cfg.Conditions)
	viper.SetDefault("chain.http_proxy", cfg.Chain.HTTPProxy)
	viper.SetDefault("chain.https_proxy", cfg.Chain.HTTPSProxy)
	viper.SetDefault("chain.no_proxy", cfg.Chain.NoProxy)
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = v
	}
	return out
}

// loadConfig resolves the effective configuration
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// app bundles the components built from configuration
type app struct {
	cfg        *model.Config
	logger     *slog.Logger
	conditions *condition.Table
	estimator  *estimate.Estimator
	scorer     *score.Scorer
}

// newApp loads configuration and wires the estimator, scorer and condition table
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if verbose && cfg.Logging.Level == "warn" {
		cfg.Logging.Level = "info"
	}

	logger, err := util.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	conditions := condition.DefaultTable()
	if cfg.Conditions != "" {
		conditions, err = condition.LoadFile(cfg.Conditions)
		if err != nil {
			return nil, fmt.Errorf("load conditions: %w", err)
		}
	}

	est, err := newEstimator(cfg, logger)
	if err != nil {
		return nil, err
	}

	scorer, err := score.NewScorer(est, cfg.Bonus)
	if err != nil {
		return nil, fmt.Errorf("configure scorer: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		conditions: conditions,
		estimator:  est,
		scorer:     scorer,
	}, nil
}

func newEstimator(cfg *model.Config, logger *slog.Logger) (*estimate.Estimator, error) {
	policy, err := estimate.FromConfig(cfg.Interval)
	if err != nil {
		return nil, fmt.Errorf("configure interval policy: %w", err)
	}

	opts := []estimate.Option{
		estimate.WithDefaultSize(cfg.Interval.DefaultSize),
		estimate.WithLogger(logger),
	}
	if cfg.Cache.Enabled {
		opts = append(opts, estimate.WithCache(cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval), cfg.Cache.TTL))
	}
	return estimate.NewEstimator(policy, opts...), nil
}
