// Package exporter renders a report result for people and for email.
//
// RenderWorkbook builds the .xlsx attachment in memory: one sheet, the source
// header row, one row per selected class. WriteSummary prints the console
// summary. Archiver optionally keeps a dated copy of the workbook and a CSV of
// the same rows, written with a UTF-8 BOM so Excel detects the encoding.
//
// Example usage:
//
//	attachment, err := exporter.RenderWorkbook(result)
//	if err != nil {
//	    return err
//	}
//	_ = exporter.WriteSummary(os.Stdout, result)
package exporter
