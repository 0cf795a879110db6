// Package config loads the settings of the synthetic_git
// tool from a YAML file and the environment with viper.
//
// Keys live under the synthetic_git section; a few fall
// back to the github section shared with other tools.
// Environment variables override the file.
package config
