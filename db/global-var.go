package db

const (
	ConstLayoutDateTime = `2006-01-02 15:04`
	ConstLayoutDate     = `2006-01-02`
)

var ConstRoles = struct {
	Admin   int
	Shipper int
	Carrier int
	API     int
}{
	Admin:   1,
	Shipper: 2,
	Carrier: 3,
	API:     4,
}
