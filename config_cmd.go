package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/lukija/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the lukija config file",
		Long:    paragraph(fmt.Sprintf("\n%s the lukija config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("lukija config\nlukija config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := ensureConfigFile(); err != nil {
				return err
			}

			c, err := editor.Cmd("Lukija", configFile)
			if err != nil {
				return fmt.Errorf("unable to set config file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			if _, err := config.Load(configFile); err != nil {
				fmt.Println("Warning:", err)
			}
			fmt.Println("Wrote config file to:", configFile)
			return nil
		},
	}

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Long:  paragraph(fmt.Sprintf("\n%s a config file with every setting at its default. An existing file is left alone.", keyword("Write"))),
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if configFile == "" {
				path, err := config.DefaultPath()
				if err != nil {
					return err
				}
				configFile = path
			}

			wrote, err := config.WriteDefault(configFile)
			if err != nil {
				return err
			}
			if !wrote {
				fmt.Println("Config file already exists:", configFile)
				return nil
			}
			fmt.Println("Wrote config file to:", configFile)
			return nil
		},
	}
)

func init() {
	configCmd.AddCommand(configInitCmd)
}

// ensureConfigFile makes sure configFile names an existing YAML file,
// writing the defaults when it is missing.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		path, err := config.DefaultPath()
		if err != nil {
			return err
		}
		configFile = path
	}

	if _, err := config.WriteDefault(configFile); err != nil {
		return fmt.Errorf("could not write configuration file: %w", err)
	}
	return nil
}
