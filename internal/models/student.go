package models

// Student is a roster entry (siswa). Owned by roster management; read-only here.
type Student struct {
	ID      int64  `db:"id" json:"id"`
	Name    string `db:"nama" json:"name"`
	ClassID *int64 `db:"kelas_id" json:"kelas_id,omitempty"`
}

// Class is a kelas row.
type Class struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"nama" json:"name"`
}
