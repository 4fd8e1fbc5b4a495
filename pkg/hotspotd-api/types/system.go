package types

import "time"

type ErrorRes struct {
	Error string `json:"error"`
}

type InterfaceRes struct {
	ID string `json:"id"`
}

type InterfacesRes struct {
	Interfaces []InterfaceRes `json:"interfaces"`
}

type LogEntryRes struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

type LogsRes struct {
	Logs []LogEntryRes `json:"logs"`
}
