package storage

// StorageMode is a workload tag controlling which secondary indices are
// materialized. Bulk ingestion runs without them for insert speed; queries
// want them all.
type StorageMode int

const (
	ModeUnknown StorageMode = 0
	ModeRead    StorageMode = 1 << iota
	ModeWrite
	ModeClear
)

// sqliteIndex is a named secondary index over a table column list.
type sqliteIndex struct {
	name   string
	target string
}

func (ix sqliteIndex) createOnDatabase(s *Storage) {
	s.executeStatement("CREATE INDEX IF NOT EXISTS " + ix.name + " ON " + ix.target + ";")
}

func (ix sqliteIndex) removeFromDatabase(s *Storage) {
	s.executeStatement("DROP INDEX IF EXISTS main." + ix.name + ";")
}

// modeIndex pairs an index with the bitmask of modes it is materialized in.
// Indexing policy is data: a new index is one more row here.
type modeIndex struct {
	modes StorageMode
	index sqliteIndex
}

func storageIndices() []modeIndex {
	return []modeIndex{
		{ModeRead | ModeClear, sqliteIndex{"edge_multipart_index", "edge(type, source_node_id, target_node_id)"}},
		{ModeRead | ModeClear, sqliteIndex{"node_serialized_name_index", "node(serialized_name)"}},
		{ModeRead | ModeClear, sqliteIndex{"local_symbol_name_index", "local_symbol(name)"}},
		{ModeRead | ModeClear, sqliteIndex{"source_location_element_id_index", "source_location(element_id)"}},
		{ModeRead | ModeClear, sqliteIndex{"source_location_file_node_id_index", "source_location(file_node_id)"}},
		{ModeRead | ModeClear, sqliteIndex{"comment_location_file_node_id_index", "comment_location(file_node_id)"}},
		{ModeRead | ModeClear, sqliteIndex{"component_access_edge_id_index", "component_access(edge_id)"}},
		{ModeRead | ModeClear, sqliteIndex{"error_all_data_index", "error(message, fatal, file_path, line_number, column_number)"}},
	}
}

// SetMode reconciles the materialized indices against the new mode. A call
// with the current mode is a no-op. Callers must quiesce queries first.
func (s *Storage) SetMode(mode StorageMode) {
	if mode == s.mode {
		return
	}

	for _, mi := range s.indices {
		if mi.modes&mode != 0 {
			mi.index.createOnDatabase(s)
		} else {
			mi.index.removeFromDatabase(s)
		}
	}

	s.mode = mode
}

// Mode returns the current workload mode.
func (s *Storage) Mode() StorageMode {
	return s.mode
}
