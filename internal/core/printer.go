package core

type PrinterState int

const (
	PrinterStateIdle        PrinterState = 3
	PrinterStateProcessing  PrinterState = 4
	PrinterStateStopped     PrinterState = 5
	PrinterStateBusy        PrinterState = 1287
	PrinterStateDeactivated PrinterState = 1290
)

var printerStateNames = map[PrinterState]string{
	PrinterStateIdle:        "idle",
	PrinterStateProcessing:  "processing",
	PrinterStateStopped:     "stopped",
	PrinterStateBusy:        "busy",
	PrinterStateDeactivated: "deactivated",
}

func (s PrinterState) String() string {
	if name, ok := printerStateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s PrinterState) Valid() bool {
	_, ok := printerStateNames[s]
	return ok
}

// ParsePrinterState maps a status tag back to its state code.
func ParsePrinterState(name string) (PrinterState, bool) {
	for state, n := range printerStateNames {
		if n == name {
			return state, true
		}
	}
	return 0, false
}

// ParseJobState maps a status tag back to its state code.
func ParseJobState(name string) (JobState, bool) {
	for state, n := range jobStateNames {
		if n == name {
			return state, true
		}
	}
	return 0, false
}
