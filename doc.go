// Package docwalk walks a document storage tree, unpacks nested archives
// and extracts the text of every supported document into a flat stream of
// records.
//
// Every entry is classified by file name only:
//   - documents (.docx, .doc, .pdf) and spreadsheets (.xlsx, .xls) are read
//     and passed to their extractor
//   - archives (.zip, .7z, .rar, .tar, .tar.gz, .tgz, .tar.zst, .tzst, .gz)
//     are unpacked and their members visited in turn
//   - anything else is skipped
//
// Each extracted document becomes a [Record] carrying a content hash of the
// normalized text, so identical text found in different places can be
// deduplicated downstream.
//
// # Quick Start
//
//	w, err := docwalk.New(docwalk.WithMaxDepth(5))
//	if err != nil {
//	    return err
//	}
//	records, err := w.Walk(ctx, "./storage")
//	if err != nil {
//	    return err
//	}
//	for rec := range records {
//	    fmt.Println(rec.FilePath, rec.ArchivePath, rec.ContentHash)
//	}
//
// # Failures
//
// A broken file never stops a walk. Unreadable entries, corrupt archives,
// parser failures and archives nested deeper than the configured ceiling
// are each reported as an [*EntryError] to the handler set with
// [WithFailureHandler] and logged at warn level. Only a missing or
// non-directory root is returned as an error, from [Walker.Walk] itself.
//
// # Scratch Space
//
// Each archive visit gets a private directory under [WithTempDir] that is
// removed before the visit returns, however it ends. Nesting is bounded by
// [WithMaxDepth] (default [DefaultMaxDepth]); a top-level archive has
// depth 1.
package docwalk
