package application

// StackElementID идентификатор экрана в стеке навигации
type StackElementID int

// PathElement экран в стеке навигации
type PathElement struct {
	ID  StackElementID
	Row Row
}

// Container корень навигации: стек экранов и модальный экран
type Container struct {
	Path        []PathElement
	Destination *Row
	nextID      StackElementID
}

// ContainerAction действие над корнем навигации
type ContainerAction interface {
	containerAction()
}

type (
	// Push кладет экран на стек
	Push struct{ Row Row }

	// PathAction применяет действие к экрану стека
	PathAction struct {
		ID     StackElementID
		Action NestedAction
	}

	// GoBackToScreen снимает со стека все экраны выше указанного
	GoBackToScreen struct{ ID StackElementID }

	// PopLast снимает верхний экран
	PopLast struct{}

	// PopToRoot очищает стек
	PopToRoot struct{}

	// NestButtonTapped показывает новый пустой экран модально
	NestButtonTapped struct{}

	// ContainerDestinationAction применяет действие к модальному экрану
	ContainerDestinationAction struct{ Action NestedAction }

	// DismissDestination закрывает модальный экран
	DismissDestination struct{}
)

func (Push) containerAction()                       {}
func (PathAction) containerAction()                 {}
func (GoBackToScreen) containerAction()             {}
func (PopLast) containerAction()                    {}
func (PopToRoot) containerAction()                  {}
func (NestButtonTapped) containerAction()           {}
func (ContainerDestinationAction) containerAction() {}
func (DismissDestination) containerAction()         {}

// Top возвращает верхний экран стека
func (c *Container) Top() (*PathElement, bool) {
	if len(c.Path) == 0 {
		return nil, false
	}
	return &c.Path[len(c.Path)-1], true
}

func (c *Container) index(id StackElementID) (int, bool) {
	for i := range c.Path {
		if c.Path[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// ReduceContainer применяет действие к корню навигации
func ReduceContainer(c *Container, action ContainerAction, newID IDGenerator) Effect {
	switch action := action.(type) {
	case Push:
		c.Path = append(c.Path, PathElement{ID: c.nextID, Row: action.Row})
		c.nextID++

	case PathAction:
		i, ok := c.index(action.ID)
		if !ok {
			return EffectNone
		}
		return ReduceNested(&c.Path[i].Row, action.Action, newID)

	case GoBackToScreen:
		if i, ok := c.index(action.ID); ok {
			c.Path = c.Path[:i+1]
		}

	case PopLast:
		if len(c.Path) > 0 {
			c.Path = c.Path[:len(c.Path)-1]
		}

	case PopToRoot:
		c.Path = nil

	case NestButtonTapped:
		row := Row{ID: newID()}
		c.Destination = &row

	case ContainerDestinationAction:
		if c.Destination == nil {
			return EffectNone
		}
		return ReduceNested(c.Destination, action.Action, newID)

	case DismissDestination:
		c.Destination = nil
	}
	return EffectNone
}
