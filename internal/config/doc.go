// Package config provides the configuration of a segmentation run. It handles
// loading configuration from multiple sources, validation, and exposes a
// type-safe struct that every stage reads its options from.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority within Load)
//	2. A YAML configuration file passed to Load
//	3. Default values (lowest priority)
//
// The segment command applies its flags on top of the loaded configuration
// and validates the result again.
//
// # Environment Variables
//
// All environment variables follow the pattern SEGMENT_<SECTION>_<KEY>, with
// camel-case keys split on word boundaries (KMin is K_MIN). Variables without
// the prefix are never read:
//
//	SEGMENT_INPUT_PATH=data/flo_data_20k.csv
//	SEGMENT_CLUSTERING_SEED=7
//	SEGMENT_CLUSTERING_K=4
//	SEGMENT_NORMALIZE_LOG_COLUMNS=tenure,total_order_num
//	SEGMENT_LOGGING_LEVEL=debug
//
// # File Format
//
//	input:
//	  path: data/flo_data_20k.csv
//	features:
//	  zero_order_policy: exclude
//	clustering:
//	  k_min: 2
//	  k_max: 10
//	  ward_clusters: 3
//
// Unknown keys in the file are rejected.
package config
