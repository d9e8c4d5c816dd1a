package pop3

// StatData is the data returned by a STAT command.
type StatData struct {
	NumMessages uint32
	// Maildrop size in octets
	Size int64
}

// ListData is a scan listing returned by a LIST command.
type ListData struct {
	Num uint32
	// Message size in octets
	Size int64
}

// UIDLData is a unique-id listing returned by a UIDL command.
type UIDLData struct {
	Num uint32
	UID string
}
