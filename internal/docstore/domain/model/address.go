package model

import "fmt"

// Address identifies one document instance in the remote store.
type Address struct {
	Database     string
	Collection   string
	ID           string
	PartitionKey string
}

// Location is the resource link reported for a newly created document.
func (a Address) Location() string {
	return fmt.Sprintf("dbs/%s/colls/%s/docs/%s", a.Database, a.Collection, a.ID)
}

func (a Address) String() string {
	return fmt.Sprintf("%s/%s/%s (partition %q)", a.Database, a.Collection, a.ID, a.PartitionKey)
}

// QuerySpec describes a query against one collection. When CrossPartition is
// false the query only sees documents whose partition key equals PartitionKey.
type QuerySpec struct {
	Database       string
	Collection     string
	Expression     string
	PartitionKey   string
	CrossPartition bool
}
