package engine

func column(rows int) []Position {
	cells := make([]Position, rows)
	for y := range cells {
		cells[y] = Position{X: 0, Y: y}
	}
	return cells
}

func levelOne() *Level {
	return &Level{
		Number:         1,
		Name:           "First steps",
		Grid:           GridSize{Columns: 1, Rows: 2},
		AllowedCells:   column(2),
		StartPosition:  Position{X: 0, Y: 1},
		FinishPosition: Position{X: 0, Y: 0},
		CompletedCode:  "move();",
		CodeLines:      1,
	}
}

func levelTwo() *Level {
	return &Level{
		Number:         2,
		Grid:           GridSize{Columns: 1, Rows: 3},
		AllowedCells:   column(3),
		StartPosition:  Position{X: 0, Y: 2},
		FinishPosition: Position{X: 0, Y: 0},
		CompletedCode:  "move(); || move();",
		CodeLines:      2,
	}
}

func levelThree() *Level {
	l := levelTwo()
	l.Number = 3
	l.CompletedCode = "move(2);"
	l.CodeLines = 1
	return l
}

func levelFour() *Level {
	return &Level{
		Number:         4,
		Grid:           GridSize{Columns: 2, Rows: 3},
		AllowedCells:   append(column(3), Position{X: 1, Y: 0}),
		StartPosition:  Position{X: 0, Y: 2},
		FinishPosition: Position{X: 1, Y: 0},
		CompletedCode:  `move(2); || turn("right"); || move(); // move(1);`,
		CodeLines:      3,
	}
}

func allLevels() []*Level {
	return []*Level{levelOne(), levelTwo(), levelThree(), levelFour()}
}
