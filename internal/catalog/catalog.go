// Package catalog defines the closed category and shift vocabularies shared
// by the event log. Each variant carries static presentation metadata so that
// adding a variant is a compile-time-checked change instead of a lookup-table
// edit.
package catalog

import "fmt"

type Category string

const (
	CategoryFalha       Category = "Falha"
	CategoryDificuldade Category = "Dificuldade"
	CategoryMelhoria    Category = "Melhoria"
	CategoryNPI         Category = "NPI"
	CategoryProjeto     Category = "Projeto"
	CategoryCincoS      Category = "5S"
	CategoryFerramenta  Category = "Ferramenta"
	CategoryPerifericos Category = "Periféricos"
	CategoryMaquina     Category = "Máquina"
	CategoryOutros      Category = "Outros"
)

type Shift string

const (
	ShiftADM      Shift = "ADM"
	ShiftSegundo  Shift = "Segundo"
	ShiftTerceiro Shift = "Terceiro"
)

// CategoryMeta is the static presentation metadata attached to a category.
type CategoryMeta struct {
	Description string
	Tone        string
}

var allCategories = []Category{
	CategoryFalha,
	CategoryDificuldade,
	CategoryMelhoria,
	CategoryNPI,
	CategoryProjeto,
	CategoryCincoS,
	CategoryFerramenta,
	CategoryPerifericos,
	CategoryMaquina,
	CategoryOutros,
}

var allShifts = []Shift{ShiftADM, ShiftSegundo, ShiftTerceiro}

var allSectors = []string{
	"Setup Engenharia",
	"Engenharia de Processos",
	"Manutenção / Máquinas",
}

func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func Shifts() []Shift {
	out := make([]Shift, len(allShifts))
	copy(out, allShifts)
	return out
}

// Sectors lists the sectors offered at registration.
func Sectors() []string {
	out := make([]string, len(allSectors))
	copy(out, allSectors)
	return out
}

func ValidSector(raw string) bool {
	for _, s := range allSectors {
		if s == raw {
			return true
		}
	}
	return false
}

func ParseCategory(raw string) (Category, error) {
	for _, c := range allCategories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", raw)
}

func ParseShift(raw string) (Shift, error) {
	for _, s := range allShifts {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown shift %q", raw)
}

// Meta resolves category metadata by exhaustive matching.
func (c Category) Meta() CategoryMeta {
	switch c {
	case CategoryFalha:
		return CategoryMeta{Description: "Falha em equipamento ou processo", Tone: "red"}
	case CategoryDificuldade:
		return CategoryMeta{Description: "Problema encontrado na linha", Tone: "amber"}
	case CategoryMelhoria:
		return CategoryMeta{Description: "Sugestão de melhoria", Tone: "emerald"}
	case CategoryNPI:
		return CategoryMeta{Description: "Novo produto/introdução", Tone: "blue"}
	case CategoryProjeto:
		return CategoryMeta{Description: "Projeto em andamento", Tone: "indigo"}
	case CategoryCincoS:
		return CategoryMeta{Description: "Ação de 5S", Tone: "purple"}
	case CategoryFerramenta:
		return CategoryMeta{Description: "Ocorrência em Ferramental", Tone: "rose"}
	case CategoryPerifericos:
		return CategoryMeta{Description: "Ocorrência em Periféricos", Tone: "cyan"}
	case CategoryMaquina:
		return CategoryMeta{Description: "Ocorrência em Máquina/Laser", Tone: "violet"}
	case CategoryOutros:
		return CategoryMeta{Description: "Outros eventos", Tone: "gray"}
	default:
		return CategoryMeta{Description: "Outros eventos", Tone: "gray"}
	}
}

// RequiresEquipmentSubtype reports whether events in this category must name
// the concrete equipment model.
func (c Category) RequiresEquipmentSubtype() bool {
	switch c {
	case CategoryFerramenta, CategoryPerifericos, CategoryMaquina:
		return true
	default:
		return false
	}
}
