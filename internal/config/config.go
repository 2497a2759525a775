// Package config holds the settings of the tmftool command.
package config

import "github.com/Faultbox/threemf/pkg/opc"

// Config holds all tool settings.
type Config struct {
	Codec   CodecConfig   `yaml:"codec" toml:"codec"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Export  ExportConfig  `yaml:"export" toml:"export"`
}

// CodecConfig controls package reading and writing.
type CodecConfig struct {
	Precision int  `yaml:"precision" toml:"precision"` // decimal places for written numbers
	Relaxed   bool `yaml:"relaxed" toml:"relaxed"`     // downgrade recoverable violations to warnings
	// AttachmentRelationships lists the relationship types whose targets
	// are copied into the model as attachments.
	AttachmentRelationships []string `yaml:"attachment_relationships" toml:"attachment_relationships"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// ExportConfig holds settings of the conversion commands.
type ExportConfig struct {
	GLTFBinary bool `yaml:"gltf_binary" toml:"gltf_binary"` // write .glb instead of .gltf
	WeldSTL    bool `yaml:"weld_stl" toml:"weld_stl"`       // merge coincident STL corners
}

// Default returns a Config with the default values.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			Precision: 6,
			Relaxed:   false,
			AttachmentRelationships: []string{
				opc.RelTexture,
				opc.RelThumbnail,
				opc.RelPrintTicket,
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Export: ExportConfig{
			GLTFBinary: true,
			WeldSTL:    true,
		},
	}
}
