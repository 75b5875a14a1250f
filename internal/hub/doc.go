// Package hub locates model repository files.
//
// Cache reads files from a Hugging Face style cache directory and downloads
// missing ones from the hub. Registry loads model aliases from YAML files and
// serves the chat templates embedded in them. Service bundles both.
package hub
