package logfields

import (
	"github.com/hacksh-LesMiddleMen/grr/pkg/message"

	"github.com/sirupsen/logrus"
)

func Request(r *message.Request) logrus.Fields {
	return logrus.Fields{
		"session": r.SessionID,
		"request": r.RequestID,
		"action":  r.Action,
	}
}

func Message(m *message.Message) logrus.Fields {
	return logrus.Fields{
		"session":  m.SessionID,
		"request":  m.RequestID,
		"response": m.ResponseID,
		"priority": int(m.Priority),
	}
}
