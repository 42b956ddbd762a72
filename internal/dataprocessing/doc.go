// Package dataprocessing turns raw customer files into validated records and
// describes them before modeling.
//
// # Loading
//
// Loader reads delimited text (an optional UTF-8 byte order mark is removed)
// or the first worksheet of an .xlsx workbook whose header contains
// master_id. Every row is parsed into a domain.CustomerRecord and checked with
// go-playground/validator rules declared on the record's struct tags:
//
//	loader := dataprocessing.NewLoader(logger, dataprocessing.LoaderConfig{Delimiter: ','})
//	ds, err := loader.Load(ctx, "data/flo_data_20k.csv")
//
// Loading never stops at the first bad row. All violations are collected and
// returned together as a MALFORMED_INPUT error whose cause is an
// errors.Violations list.
//
// # Profiling
//
// Profiler reports shape, detected column types, missing values, gota
// descriptive statistics and the most frequent values of text columns.
// SkewReport computes sample skewness and D'Agostino's skew test for numeric
// columns, the basis for choosing which columns get a log transform.
package dataprocessing
