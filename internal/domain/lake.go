package domain

// CSVExtension is the file suffix recognised as a lake data file.
const CSVExtension = ".csv"

// Lake is a named directory holding flat CSV files for one dataset group.
// Lakes are created by ingestion collaborators and are read-only here.
type Lake struct {
	Name string
	Path string
}

// View is a read-only table definition backed by one CSV file. Views exist
// only inside the session that registered them.
type View struct {
	Name string // file stem
	Path string // absolute path of the backing file
}
