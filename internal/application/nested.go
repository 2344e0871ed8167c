package application

import (
	"github.com/google/uuid"

	"capture-session/internal/domain"
)

// IDGenerator выдает идентификаторы строк
type IDGenerator func() uuid.UUID

// Row строка, которая сама содержит список строк того же вида.
// Дочерние строки хранятся по значению, циклы невозможны.
type Row struct {
	ID           uuid.UUID
	Name         string
	Rows         []Row
	Destination  *Destination
	CurrentFrame *domain.Frame
}

// Destination экран, показанный поверх строки: вложенная строка или камера
type Destination struct {
	Nested *Row
	Camera *CameraState
}

// NewRow создает строку с новым идентификатором
func NewRow(newID IDGenerator, name string, rows ...Row) Row {
	return Row{ID: newID(), Name: name, Rows: rows}
}

// Clone возвращает глубокую копию строки
func (r Row) Clone() Row {
	clone := r
	if r.Rows != nil {
		clone.Rows = make([]Row, len(r.Rows))
		for i, child := range r.Rows {
			clone.Rows[i] = child.Clone()
		}
	}
	if r.Destination != nil {
		destination := Destination{}
		if r.Destination.Nested != nil {
			nested := r.Destination.Nested.Clone()
			destination.Nested = &nested
		}
		if r.Destination.Camera != nil {
			camera := *r.Destination.Camera
			destination.Camera = &camera
		}
		clone.Destination = &destination
	}
	return clone
}

// Title заголовок экрана строки
func (r Row) Title() string {
	if r.Name == "" {
		return "Untitled"
	}
	return r.Name
}

// Find ищет прямого потомка по идентификатору
func (r *Row) Find(id uuid.UUID) (int, bool) {
	for i := range r.Rows {
		if r.Rows[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// NestedAction действие над строкой
type NestedAction interface {
	nestedAction()
}

type (
	// AddRow добавляет пустую дочернюю строку в конец
	AddRow struct{}

	// RenameRow меняет имя строки
	RenameRow struct{ Name string }

	// DeleteRows удаляет дочерние строки по позициям
	DeleteRows struct{ Indexes []int }

	// OpenCamera показывает экран камеры
	OpenCamera struct{}

	// CloseCamera закрывает показанный экран
	CloseCamera struct{}

	// CameraToggled открывает или закрывает камеру
	CameraToggled struct{ Open bool }

	// NestTapped показывает дочернюю строку как вложенный экран
	NestTapped struct{ ID uuid.UUID }

	// ChildAction применяет действие к дочерней строке
	ChildAction struct {
		ID     uuid.UUID
		Action NestedAction
	}

	// DestinationAction передает действие показанному экрану.
	// Заполняется ровно одно из полей.
	DestinationAction struct {
		Nested NestedAction
		Camera CameraAction
	}
)

func (AddRow) nestedAction()             {}
func (RenameRow) nestedAction()          {}
func (DeleteRows) nestedAction()         {}
func (OpenCamera) nestedAction()         {}
func (CloseCamera) nestedAction()        {}
func (CameraToggled) nestedAction()      {}
func (NestTapped) nestedAction()         {}
func (ChildAction) nestedAction()        {}
func (DestinationAction) nestedAction()  {}
func (DismissDestination) nestedAction() {}

// ReduceNested применяет действие к строке. Все действия тотальны:
// неизвестные идентификаторы и позиции игнорируются.
func ReduceNested(row *Row, action NestedAction, newID IDGenerator) Effect {
	switch action := action.(type) {
	case AddRow:
		row.Rows = append(row.Rows, Row{ID: newID()})

	case RenameRow:
		row.Name = action.Name

	case DeleteRows:
		row.Rows = deleteAt(row.Rows, action.Indexes)

	case OpenCamera:
		row.Destination = &Destination{Camera: &CameraState{}}

	case CloseCamera:
		row.Destination = nil

	case CameraToggled:
		if action.Open && row.Destination == nil {
			row.Destination = &Destination{Camera: &CameraState{}}
		} else if !action.Open {
			row.Destination = nil
		}

	case NestTapped:
		i, ok := row.Find(action.ID)
		if !ok {
			return EffectNone
		}
		nested := row.Rows[i].Clone()
		row.Destination = &Destination{Nested: &nested}

	case ChildAction:
		i, ok := row.Find(action.ID)
		if !ok {
			return EffectNone
		}
		return ReduceNested(&row.Rows[i], action.Action, newID)

	case DestinationAction:
		return reduceDestination(row, action, newID)

	case DismissDestination:
		row.Destination = nil
	}
	return EffectNone
}

func reduceDestination(row *Row, action DestinationAction, newID IDGenerator) Effect {
	if row.Destination == nil {
		return EffectNone
	}

	switch {
	case action.Nested != nil && row.Destination.Nested != nil:
		return ReduceNested(row.Destination.Nested, action.Nested, newID)

	case action.Camera != nil && row.Destination.Camera != nil:
		effect := ReduceCamera(row.Destination.Camera, action.Camera)
		if received, ok := action.Camera.(FrameReceived); ok {
			frame := received.Frame
			row.CurrentFrame = &frame
		}
		return effect
	}
	return EffectNone
}

// deleteAt удаляет элементы по набору позиций, сохраняя порядок остальных
func deleteAt(rows []Row, indexes []int) []Row {
	if len(indexes) == 0 || len(rows) == 0 {
		return rows
	}

	drop := make(map[int]struct{}, len(indexes))
	for _, i := range indexes {
		if i >= 0 && i < len(rows) {
			drop[i] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return rows
	}

	kept := make([]Row, 0, len(rows)-len(drop))
	for i, r := range rows {
		if _, ok := drop[i]; !ok {
			kept = append(kept, r)
		}
	}
	return kept
}
