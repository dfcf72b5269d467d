package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"docflow_app_go/models"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Correspondencia"

var exportHeaders = []string{
	"Registro",        // A
	"Documento",       // B
	"Remitente",       // C
	"Folios",          // D
	"Estado",          // E
	"Destino",         // F
	"Departamento",    // G
	"Rol responsable", // H
	"Jefe",            // I
	"Técnico",         // J
	"Profesionales",   // K
	"Documento URL",   // L
	"Creado",          // M
	"Actualizado",     // N
}

// ExportCorrespondenceXLSX writes items to a single-sheet workbook.
// Timestamps are rendered in loc (UTC when nil).
func ExportCorrespondenceXLSX(items []models.Correspondence, loc *time.Location) (*bytes.Buffer, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	f.SetCellStyle(exportSheet, "A1", lastCol+"1", headerStyle)
	f.SetColWidth(exportSheet, "A", lastCol, 22)
	f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, Split: false, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for i, c := range items {
		row := []interface{}{
			c.RegExpediente,
			c.DocumentoRecibido,
			c.EnviadoPor,
			c.Folios,
			string(c.Estado),
			destinationLabel(c.Destino),
			c.OwnerDept,
			c.OwnerRole,
			c.JefeLabel,
			c.TecnicoLabel,
			strings.Join(c.Profesionales, ", "),
			c.DocumentoURL,
			c.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			c.UpdatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write excel buffer: %w", err)
	}
	return buf, nil
}

func destinationLabel(d models.Destination) string {
	if sub, ok := d.Subdirection(); ok {
		return sub
	}
	if dept, ok := d.Department(); ok {
		return dept
	}
	return ""
}
