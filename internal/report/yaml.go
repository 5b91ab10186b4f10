package report

import (
	"io"

	"github.com/goccy/go-yaml"

	"xm2m/internal/repo"
)

// YAML buffers the traversal and writes one YAML document at End.
type YAML struct {
	w   io.Writer
	doc yamlDoc
	now func() string
}

type yamlDoc struct {
	Generated string `yaml:"generated"`
	Version   string `yaml:"version"`
	Port      int    `yaml:"port"`
	Records   []row  `yaml:"records"`
}

// NewYAML returns a YAML sink writing to w.
func NewYAML(w io.Writer, info Info) *YAML {
	return &YAML{
		w: w,
		doc: yamlDoc{
			Version: info.Version,
			Port:    info.TransactionPort,
		},
		now: func() string { return info.now().Format(TimeLayout) },
	}
}

func (y *YAML) Begin() error {
	y.doc.Generated = y.now()
	y.doc.Records = []row{}
	return nil
}

func (y *YAML) WriteRecord(rec repo.Record) error {
	y.doc.Records = append(y.doc.Records, rowOf(rec))
	return nil
}

func (y *YAML) End() error {
	return yaml.NewEncoder(y.w).Encode(y.doc)
}
