package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/parnexcodes/dbxup/internal/config"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "dbxup [flags] FILENAME...",
		Short: "Upload given files to a Dropbox location",
		Long: `Upload given files and folders to a Dropbox location, or to an S3 or
Google Cloud Storage bucket with --backend.

Note: the options can also be provided by storing them in a file and supplying
the filename as an argument prefixed with '@', like so: dbxup @dbx.cfg.
It can also be combined with other arguments that come before it.`,
		Args:          cobra.MinimumNArgs(1),
		Version:       version,
		SilenceUsage:  true,
		RunE:          runUpload,
	}
)

// Execute executes the root command
func Execute() error {
	args, err := expandArgFiles(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (YAML, TOML or JSON)")
	flags.StringP("token", "t", "", "private token of a Dropbox app")
	flags.StringP("location", "l", config.DefaultLocation, "location of remote destination")
	flags.BoolP("replace", "r", false, "replace remote files if they already exist")
	flags.Bool("pps", false, "preserve path structures of files and folders")
	flags.BoolP("cleanup", "c", false, "remove the respective .pyc files from disk before uploading")
	flags.IntP("verbosity", "v", config.DefaultVerbosity, "set verbosity level to none(0), partial(1) or full(2)")
	flags.BoolP("version", "V", false, "print the version and exit")
	flags.String("backend", config.DefaultBackend, "remote backend (dropbox, s3, gcs)")
	flags.String("log-file", config.DefaultLogFile, "file the session log is appended to")
	flags.String("summary", "", "print an end-of-session summary (text, json) to stderr")

	// Bind flags to viper
	viper.BindPFlag("token", flags.Lookup("token"))
	viper.BindPFlag("location", flags.Lookup("location"))
	viper.BindPFlag("replace", flags.Lookup("replace"))
	viper.BindPFlag("pps", flags.Lookup("pps"))
	viper.BindPFlag("cleanup", flags.Lookup("cleanup"))
	viper.BindPFlag("verbosity", flags.Lookup("verbosity"))
	viper.BindPFlag("backend", flags.Lookup("backend"))
	viper.BindPFlag("log_file", flags.Lookup("log-file"))
	viper.BindPFlag("summary", flags.Lookup("summary"))

	rootCmd.SetVersionTemplate(versionTemplate)
}

func initConfig() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
	config.BindEnv()

	// Only load config if explicitly specified via --config flag
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}
}
