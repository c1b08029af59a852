package model

// Project is the top-level ownership boundary for documents, conversations,
// and generated files. CollectionHandle is empty until the first successful
// ingest creates the project's vector-store collection; once set it never
// changes.
type Project struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	CollectionHandle string `json:"collection_handle,omitempty"`
	Ctime            int64  `json:"ctime"`
	Mtime            int64  `json:"mtime"`
}

func (p *Project) HasCollection() bool {
	return p != nil && p.CollectionHandle != ""
}
