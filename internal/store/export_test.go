package store

// SetBeforeCreate installs a hook that runs between the missing-file check and its creation
func (f *FilePersister) SetBeforeCreate(fn func()) {
	f.beforeCreate = fn
}
