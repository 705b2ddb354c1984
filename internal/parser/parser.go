// Package parser turns source files into ordered per-page text. PDF pages
// go through table-aware structural extraction; office and markdown formats
// map sheets and sections onto 1-based page numbers.
package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"policy-rag/internal/config"
	"policy-rag/internal/models"
	"policy-rag/internal/pdfextract"
)

// Pages extracts the ordered page texts of a source file. The file's
// extension selects the extraction strategy.
func Pages(filePath string, tblCfg config.TableConfig) ([]models.PageText, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		return parsePDF(filePath, tblCfg)
	case ".docx":
		return parseDOCX(filePath)
	case ".xlsx":
		return parseXLSX(filePath)
	case ".xlsm", ".xltx", ".xltm":
		return parseMacroWorkbook(filePath)
	case ".md", ".markdown":
		return parseMarkdown(filePath)
	case ".txt":
		return parseText(filePath)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
}

func parsePDF(filePath string, tblCfg config.TableConfig) ([]models.PageText, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	extractor := pdfextract.New(tblCfg)

	var pages []models.PageText
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			log.Warn().Int("page", i).Msg("skipping null page object")
			pages = append(pages, models.PageText{PageNumber: i})
			continue
		}
		pages = append(pages, models.PageText{
			PageNumber: i,
			Content:    extractor.PageText(page, i),
		})
	}
	return pages, nil
}

func parseDOCX(filePath string) ([]models.PageText, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	content = stripXMLTags(content)
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	// DOCX has no page geometry; the document becomes one logical page.
	return []models.PageText{{PageNumber: 1, Content: content}}, nil
}

func parseXLSX(filePath string) ([]models.PageText, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var pages []models.PageText
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheet.Name))
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				text.WriteString(cell.String() + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.PageText{
			PageNumber: sheetNum + 1,
			Content:    text.String(),
		})
	}
	return pages, nil
}

func parseMacroWorkbook(filePath string) ([]models.PageText, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pages []models.PageText
	for sheetNum, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("skipping unreadable sheet")
			continue
		}
		var text strings.Builder
		text.WriteString(fmt.Sprintf("Sheet: %s\n", sheetName))
		for _, row := range rows {
			for _, cell := range row {
				text.WriteString(cell + "\t")
			}
			text.WriteString("\n")
		}
		pages = append(pages, models.PageText{
			PageNumber: sheetNum + 1,
			Content:    text.String(),
		})
	}
	return pages, nil
}

func parseText(filePath string) ([]models.PageText, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	return []models.PageText{{PageNumber: 1, Content: string(data)}}, nil
}

func stripXMLTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
