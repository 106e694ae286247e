package domain

// Engineer is a single on-call contact.
type Engineer struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	ChatHandle string `json:"chat_handle"`
}

// TeamChannels holds the chat channels associated with a team.
type TeamChannels struct {
	Primary string `json:"primary"`
	General string `json:"general"`
	Alerts  string `json:"alerts"`
}

// OncallAssignment is a read-only snapshot of a directory lookup. The
// directory backend is the system of record; assignments are never persisted.
type OncallAssignment struct {
	Team     string       `json:"team"`
	Engineer Engineer     `json:"engineer"`
	Channels TeamChannels `json:"channels"`
}
