// seed_catalog genera el script SQL que carga el catálogo de medicamentos a partir del
// listado oficial en XML (codificado en ISO-8859-1).
//
// Uso: go run ./cmd/seed_catalog [ruta/Medicamentos.xml] [salida.sql]
// Por defecto lee Medicamentos.xml del directorio actual.
// Escribe por defecto: internal/infrastructure/postgres/seed_medications.sql
package main

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Los ids se derivan del código del medicamento: regenerar el script no duplica filas.
var catalogNamespace = uuid.MustParse("6f1c3a52-8d0e-4b7a-9a51-2f4c1d7e9b30")

type catalogo struct {
	Medicamentos []medicamento `xml:"medicamento"`
}

type medicamento struct {
	Codigo        string `xml:"codigo,attr"`
	Nombre        string `xml:"nombre,attr"`
	Concentracion string `xml:"concentracion,attr"`
	Forma         string `xml:"forma,attr"`
	Descripcion   string `xml:"descripcion"`
	NivelReorden  int64  `xml:"nivelReorden,attr"`
}

func main() {
	xmlPath := "Medicamentos.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var c catalogo
	dec := xml.NewDecoder(f)
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if err := dec.Decode(&c); err != nil {
		fmt.Fprintf(os.Stderr, "Decodificar XML: %v\n", err)
		os.Exit(1)
	}

	// Un registro por código; el último gana.
	byCode := make(map[string]medicamento)
	for _, m := range c.Medicamentos {
		m.Codigo = strings.TrimSpace(m.Codigo)
		m.Nombre = strings.TrimSpace(m.Nombre)
		if m.Codigo == "" || m.Nombre == "" {
			continue
		}
		byCode[m.Codigo] = m
	}
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "seed_medications.sql")
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	out.WriteString("-- Catálogo de medicamentos\n")
	out.WriteString("-- Generado desde " + filepath.Base(xmlPath) + "\n\n")
	for _, code := range codes {
		m := byCode[code]
		level := m.NivelReorden
		if level <= 0 {
			level = 50
		}
		fmt.Fprintf(out, "INSERT INTO medications (id, name, strength, dosage_form, description, reorder_level, created_at, updated_at)\n")
		fmt.Fprintf(out, "VALUES ('%s', '%s', '%s', '%s', '%s', %d, now(), now())\n",
			uuid.NewSHA1(catalogNamespace, []byte(code)).String(),
			escapeSQL(m.Nombre),
			escapeSQL(strings.TrimSpace(m.Concentracion)),
			escapeSQL(strings.ToUpper(strings.TrimSpace(m.Forma))),
			escapeSQL(strings.TrimSpace(m.Descripcion)),
			level,
		)
		out.WriteString("ON CONFLICT (id) DO UPDATE SET description = EXCLUDED.description, reorder_level = EXCLUDED.reorder_level;\n")
	}

	fmt.Printf("Generado %s: %d medicamentos\n", outPath, len(codes))
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
