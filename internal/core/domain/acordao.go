package domain

import "time"

// Acordao is a TCU ruling as served by the document store.
type Acordao struct {
	ID         int64      `json:"id"`
	Numero     string     `json:"numero"`
	Ano        int        `json:"ano"`
	Titulo     string     `json:"titulo,omitempty"`
	Sumario    string     `json:"sumario,omitempty"`
	TextoPDF   string     `json:"-"`
	DataSessao *time.Time `json:"data_sessao,omitempty"`
	Relator    string     `json:"relator,omitempty"`
	Colegiado  string     `json:"colegiado,omitempty"`
	URL        string     `json:"url_acordao,omitempty"`
}

// AcordaoRef is the metadata returned to callers, without the body text.
type AcordaoRef struct {
	ID         int64      `json:"id"`
	Numero     string     `json:"numero"`
	Ano        int        `json:"ano"`
	Titulo     string     `json:"titulo,omitempty"`
	DataSessao *time.Time `json:"data_sessao,omitempty"`
	Relator    string     `json:"relator,omitempty"`
	Colegiado  string     `json:"colegiado,omitempty"`
	URL        string     `json:"url_acordao,omitempty"`
}

func (a Acordao) Ref() AcordaoRef {
	return AcordaoRef{
		ID:         a.ID,
		Numero:     a.Numero,
		Ano:        a.Ano,
		Titulo:     a.Titulo,
		DataSessao: a.DataSessao,
		Relator:    a.Relator,
		Colegiado:  a.Colegiado,
		URL:        a.URL,
	}
}

type CorpusStats struct {
	Total       int `json:"total_acordaos"`
	Processable int `json:"acordaos_processaveis"`
}

func (s CorpusStats) WithoutText() int {
	return s.Total - s.Processable
}

func (s CorpusStats) ProcessablePercent() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Processable) / float64(s.Total) * 100
}
