// Package xlsx reads single cells out of SpreadsheetML workbooks
package xlsx

import (
	"archive/zip"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/pkg/errors"
)

const (
	workbookPart      = "xl/workbook.xml"
	workbookRelsPart  = "xl/_rels/workbook.xml.rels"
	sharedStringsPart = "xl/sharedStrings.xml"
	defaultSheetPart  = "xl/worksheets/sheet1.xml"
)

// ErrCellNotFound is returned when the requested cell is empty or absent
var ErrCellNotFound = errors.New("cell not found")

// ReadCell returns the text of cell ref (e.g. "B15") on the first worksheet
func ReadCell(filePath, ref string) (string, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return "", errors.Wrapf(err, "open workbook %s", filePath)
	}
	defer zr.Close()

	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	sheetPart, err := firstSheetPart(parts)
	if err != nil {
		return "", err
	}
	sheet, err := readPart(parts, sheetPart)
	if err != nil {
		return "", err
	}

	ref = strings.ToUpper(strings.TrimSpace(ref))
	cell := sheet.FindElement("//sheetData/row/c[@r='" + ref + "']")
	if cell == nil {
		return "", errors.Wrapf(ErrCellNotFound, "%s in %s", ref, sheetPart)
	}

	switch cell.SelectAttrValue("t", "n") {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(childText(cell, "v")))
		if err != nil {
			return "", errors.Wrapf(err, "shared string index of %s", ref)
		}
		return sharedString(parts, idx)
	case "inlineStr":
		is := cell.SelectElement("is")
		if is == nil {
			return "", errors.Wrapf(ErrCellNotFound, "%s has no inline string", ref)
		}
		return richText(is), nil
	default:
		v := cell.SelectElement("v")
		if v == nil {
			return "", errors.Wrapf(ErrCellNotFound, "%s has no value", ref)
		}
		return v.Text(), nil
	}
}

// firstSheetPart resolves the first <sheet> of the workbook to its part name
func firstSheetPart(parts map[string]*zip.File) (string, error) {
	if _, ok := parts[workbookPart]; !ok {
		return "", errors.Errorf("%s missing, not a workbook", workbookPart)
	}
	wb, err := readPart(parts, workbookPart)
	if err != nil {
		return "", err
	}
	sheet := wb.FindElement("//sheets/sheet")
	if sheet == nil {
		return "", errors.New("workbook has no sheets")
	}
	relID := sheet.SelectAttrValue("r:id", "")
	if relID == "" {
		return defaultSheetPart, nil
	}

	if _, ok := parts[workbookRelsPart]; !ok {
		return defaultSheetPart, nil
	}
	rels, err := readPart(parts, workbookRelsPart)
	if err != nil {
		return "", err
	}
	rel := rels.FindElement("//Relationship[@Id='" + relID + "']")
	if rel == nil {
		return defaultSheetPart, nil
	}
	target := rel.SelectAttrValue("Target", "")
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/"), nil
	}
	return path.Join("xl", target), nil
}

func sharedString(parts map[string]*zip.File, idx int) (string, error) {
	doc, err := readPart(parts, sharedStringsPart)
	if err != nil {
		return "", err
	}
	items := doc.FindElements("//sst/si")
	if idx < 0 || idx >= len(items) {
		return "", errors.Errorf("shared string %d out of range (%d entries)", idx, len(items))
	}
	return richText(items[idx]), nil
}

// richText concatenates every <t> below el, covering plain and rich runs
func richText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range el.FindElements(".//t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return c.Text()
	}
	return ""
}

func readPart(parts map[string]*zip.File, name string) (*etree.Document, error) {
	f, ok := parts[name]
	if !ok {
		return nil, errors.Errorf("part %s missing", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "open part %s", name)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "read part %s", name)
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, errors.Wrapf(err, "parse part %s", name)
	}
	return doc, nil
}
