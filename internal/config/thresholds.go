package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// thresholdsFile is the THRESHOLDS_FILE layout. Keys that are absent keep the
// current value; avail_threshold or prb_threshold set to null disable that
// half of the availability rule.
//
//	prb_congestion_threshold: 80
//	consecutive_days: 2
//	avail_threshold: 97.5
//	prb_threshold: null
type thresholdsFile struct {
	Threshold       *float64  `yaml:"prb_congestion_threshold"`
	ConsecutiveDays *int      `yaml:"consecutive_days"`
	AvailThreshold  yaml.Node `yaml:"avail_threshold"`
	PRBThreshold    yaml.Node `yaml:"prb_threshold"`
}

func (c *Config) applyThresholdsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read THRESHOLDS_FILE: %w", err)
	}

	var f thresholdsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse THRESHOLDS_FILE: %w", err)
	}

	if f.Threshold != nil {
		c.Threshold = *f.Threshold
	}
	if f.ConsecutiveDays != nil {
		c.ConsecutiveDays = *f.ConsecutiveDays
	}
	if err := decodeOptional(&f.AvailThreshold, &c.AvailThreshold); err != nil {
		return fmt.Errorf("parse THRESHOLDS_FILE avail_threshold: %w", err)
	}
	if err := decodeOptional(&f.PRBThreshold, &c.PRBThreshold); err != nil {
		return fmt.Errorf("parse THRESHOLDS_FILE prb_threshold: %w", err)
	}
	return nil
}

// decodeOptional leaves dst alone for an absent key and clears it for null.
func decodeOptional(node *yaml.Node, dst **float64) error {
	switch {
	case node.Kind == 0:
		return nil
	case node.ShortTag() == "!!null":
		*dst = nil
		return nil
	}
	var v float64
	if err := node.Decode(&v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
