// Package cobindex turns library catalog records into Solr documents.
//
// The center of cobindex is the ingest pipeline. Interfaces and basic
// implementations of each stage listed below are included in this package,
// and the implementations which rely on other software are in sub-packages.
//
// 1. RawSource
//
//    A RawSource hands out payloads one at a time: files on disk, objects in
//    an S3 bucket, messages on a Kafka topic or standard input. It does not
//    look inside the payload.
//
// 2. Source
//
//    A Source decodes payloads into marc.Record values. NewXMLSource wraps any
//    RawSource carrying MARCXML collections and is safe for several workers
//    to pull from at once.
//
// 3. Indexer
//
//    The Indexer runs an ordered list of named Rules against a record. Each
//    rule appends values to the output Document and may mark the record as
//    skipped, which stops processing of that record. The rule list for the
//    catalog lives in the rules sub-package.
//
// 4. Writer
//
//    A Writer receives batches of Documents. The solr sub-package holds the
//    HTTP writer which applies update date filtering before sending.
//
// An Ingester wires the stages together with a configurable number of
// concurrent workers.
package cobindex
