package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/git-review/internal/errdefs"
	"github.com/joescharf/git-review/internal/git"
	"github.com/joescharf/git-review/internal/output"
	"github.com/joescharf/git-review/internal/platform"
	"github.com/joescharf/git-review/internal/runner"
	"github.com/joescharf/git-review/internal/workflow"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool
	dryRun  bool

	force    bool
	submit   bool
	username string
	base     string
)

var rootCmd = &cobra.Command{
	Use:   "git-review [reviewers]",
	Short: "Push the current branch and request a review",
	Long: `git-review pushes the checked-out branch to a personal branch on the remote
and opens a pull request (GitHub) or merge request (GitLab) against the branch
it was started from.

reviewers is an optional comma separated list of platform handles.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		var reviewers string
		if len(args) > 0 {
			reviewers = args[0]
		}
		dir, err := os.Getwd()
		if err != nil {
			return err
		}
		return reviewRun(cmd.Context(), dir, reviewers)
	},
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// printError reports err, listing its hints one per row.
func printError(w io.Writer, err error) {
	hints := errdefs.HintOf(err)
	if len(hints) == 0 {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	fmt.Fprintf(w, "Error: %s\n", msg)
	table := (&output.UI{Out: w}).Table([]string{"Candidates"})
	for _, h := range hints {
		_ = table.Append([]string{h})
	}
	_ = table.Render()
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "Show what would happen without making changes")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/git-review/config.yaml)")

	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Force push and skip the review request")
	rootCmd.Flags().BoolVarP(&submit, "submit", "s", false, "Submit for automatic merge after requesting the review")
	rootCmd.Flags().StringVarP(&username, "username", "u", "", "Prefix of the remote branch (default: local part of user.email)")
	rootCmd.Flags().StringVarP(&base, "base", "b", "", "Remote branch to request the review against (default: guessed)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		configDir, err := configDirFunc()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GIT_REVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	_ = viper.BindEnv("gitlab.token", "GIT_REVIEW_GITLAB_TOKEN", "GITLAB_TOKEN")

	setDefaults()

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault("remote", git.DefaultRemote)
	viper.SetDefault("username", "")
	viper.SetDefault("hook", platform.DefaultHook)
	viper.SetDefault("github.helper", "hub")
	viper.SetDefault("github.review_host", "reviewable.io/reviews")
	viper.SetDefault("gitlab.host", "gitlab.com")
	viper.SetDefault("gitlab.url", "")
	viper.SetDefault("gitlab.token", "")
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
	ui.DryRun = dryRun
}

// platformOptions builds backend options from the effective configuration.
func platformOptions(dir string) platform.Options {
	return platform.Options{
		Runner:       runner.New(dir),
		GitHubHelper: viper.GetString("github.helper"),
		ReviewHost:   viper.GetString("github.review_host"),
		GitLabHost:   viper.GetString("gitlab.host"),
		GitLabURL:    viper.GetString("gitlab.url"),
		GitLabToken:  viper.GetString("gitlab.token"),
	}
}

// resolveUsername picks the flag, then the configured username, then the
// local part of the git user email.
func resolveUsername(ctx context.Context, repo *git.Repo) (string, error) {
	if username != "" {
		return username, nil
	}
	if u := viper.GetString("username"); u != "" {
		return u, nil
	}
	email, err := repo.UserEmail(ctx)
	if err != nil {
		return "", err
	}
	return git.UsernameFromEmail(email), nil
}

func reviewRun(ctx context.Context, dir, reviewers string) error {
	repo := git.NewRepo(git.NewClient(dir), viper.GetString("remote"))
	user, err := resolveUsername(ctx, repo)
	if err != nil {
		return err
	}

	opts := platformOptions(dir)
	w := workflow.New(repo, runner.New(dir), viper.GetString("hook"), workflow.PlatformBackends(opts), ui)
	runOpts := workflow.Options{
		Username:  user,
		Base:      base,
		Reviewers: reviewers,
		Force:     force,
		Submit:    submit,
	}

	if dryRun {
		return planRun(ctx, w, runOpts, opts)
	}

	_, err = w.Run(ctx, runOpts)
	return err
}

func planRun(ctx context.Context, w *workflow.Workflow, runOpts workflow.Options, opts platform.Options) error {
	plan, err := w.Plan(ctx, runOpts)
	if err != nil {
		return err
	}

	kind := "unknown"
	if target, err := platform.Detect(plan.RemoteURL, opts); err == nil {
		kind = string(target.Kind)
	}

	table := ui.Table([]string{"Ref", "Value"})
	_ = table.Append([]string{"branch", plan.Refs.Branch})
	_ = table.Append([]string{"remote branch", plan.Refs.Remote})
	_ = table.Append([]string{"base", plan.Refs.Base})
	_ = table.Append([]string{"default", plan.Refs.Default})
	_ = table.Append([]string{"platform", kind})
	_ = table.Render()

	for _, step := range plan.Steps {
		ui.DryRunMsg("Would run: %s", step)
	}
	return nil
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "git-review"), nil
}
