package storage

import (
	"database/sql"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// inClauseInt renders an IN clause from trusted integer ids. String payloads
// always go through prepared statement parameters instead.
func inClauseInt(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// countLines returns the number of lines in content, counting a trailing
// partial line.
func countLines(content string) int {
	if len(content) == 0 {
		return 0
	}
	n := strings.Count(content, "\n")
	if !strings.HasSuffix(content, "\n") {
		n++
	}
	return n
}

// addElement allocates the next id in the shared element id space.
func (s *Storage) addElement() int64 {
	return s.executeInsert("INSERT INTO element(id) VALUES(NULL);")
}

// AddEdge inserts a typed directed relation between two nodes and returns
// the assigned id, or 0 on failure.
func (s *Storage) AddEdge(edgeType EdgeType, sourceNodeID, targetNodeID int64) int64 {
	id := s.addElement()
	if id == 0 {
		return 0
	}
	if s.executeInsert(
		"INSERT INTO edge(id, type, source_node_id, target_node_id) VALUES(?, ?, ?, ?);",
		id, int(edgeType), sourceNodeID, targetNodeID,
	) == 0 {
		return 0
	}
	return id
}

// AddNode inserts a named symbol node and returns the assigned id, or 0 on
// failure.
func (s *Storage) AddNode(nodeType NodeType, serializedName string, definitionType DefinitionType) int64 {
	id := s.addElement()
	if id == 0 {
		return 0
	}
	if s.executeInsert(
		"INSERT INTO node(id, type, serialized_name, definition_type) VALUES(?, ?, ?, ?);",
		id, int(nodeType), serializedName, int(definitionType),
	) == 0 {
		return 0
	}
	return id
}

// AddFile inserts a node of type file plus its full-text row. The file's
// content is read from path and its lines counted; a read failure leaves the
// content empty and is logged.
func (s *Storage) AddFile(serializedName, path string, modificationTime time.Time) int64 {
	id := s.AddNode(NodeTypeFile, serializedName, DefinitionNone)
	if id == 0 {
		return 0
	}

	content := ""
	if data, err := os.ReadFile(path); err != nil {
		log.Printf("storage: read %s: %v", path, err)
	} else {
		content = string(data)
	}

	s.executeStatement(
		"INSERT INTO file(id, path, modification_time, content, loc) VALUES(?, ?, ?, ?, ?);",
		id, path, modificationTime.Format(time.RFC3339), content, countLines(content),
	)
	return id
}

// AddLocalSymbol inserts a function-local identifier and returns the
// assigned id, or 0 on failure.
func (s *Storage) AddLocalSymbol(name string) int64 {
	id := s.addElement()
	if id == 0 {
		return 0
	}
	if s.executeInsert("INSERT INTO local_symbol(id, name) VALUES(?, ?);", id, name) == 0 {
		return 0
	}
	return id
}

// AddSourceLocation attaches a textual range to an element within a file.
func (s *Storage) AddSourceLocation(
	elementID, fileNodeID int64, startLine, startCol, endLine, endCol int, locationType LocationType,
) int64 {
	return s.executeInsert(
		`INSERT INTO source_location(element_id, file_node_id, start_line, start_column, end_line, end_column, type)
		VALUES(?, ?, ?, ?, ?, ?, ?);`,
		elementID, fileNodeID, startLine, startCol, endLine, endCol, int(locationType),
	)
}

// AddComponentAccess annotates a member edge with an access level.
func (s *Storage) AddComponentAccess(edgeID int64, accessType AccessType) int64 {
	return s.executeInsert(
		"INSERT INTO component_access(edge_id, type) VALUES(?, ?);",
		edgeID, int(accessType),
	)
}

// AddCommentLocation records a comment range in a file.
func (s *Storage) AddCommentLocation(fileNodeID int64, startLine, startCol, endLine, endCol int) int64 {
	return s.executeInsert(
		`INSERT INTO comment_location(file_node_id, start_line, start_column, end_line, end_column)
		VALUES(?, ?, ?, ?, ?);`,
		fileNodeID, startLine, startCol, endLine, endCol,
	)
}

// AddError records an analysis diagnostic. An identical row is probed for
// first; duplicates on the full key coalesce to the existing id.
func (s *Storage) AddError(message string, fatal bool, filePath string, line, column int) int64 {
	fatalInt := 0
	if fatal {
		fatalInt = 1
	}

	existing := s.executeScalar(
		`SELECT id FROM error WHERE message = ? AND fatal = ? AND file_path = ? AND line_number = ? AND column_number = ?;`,
		message, fatalInt, filePath, line, column,
	)
	if existing != 0 {
		return int64(existing)
	}

	return s.executeInsert(
		`INSERT INTO error(message, fatal, file_path, line_number, column_number)
		VALUES(?, ?, ?, ?, ?);`,
		message, fatalInt, filePath, line, column,
	)
}

// SetNodeType updates the type tag of a node.
func (s *Storage) SetNodeType(id int64, nodeType NodeType) {
	s.executeStatement("UPDATE node SET type = ? WHERE id = ?;", int(nodeType), id)
}

// SetNodeDefinitionType updates the definition tag of a node.
func (s *Storage) SetNodeDefinitionType(id int64, definitionType DefinitionType) {
	s.executeStatement("UPDATE node SET definition_type = ? WHERE id = ?;", int(definitionType), id)
}

// RemoveElement deletes an element; node, edge, source location and
// component access rows cascade.
func (s *Storage) RemoveElement(id int64) {
	s.RemoveElements([]int64{id})
}

// RemoveElements deletes a batch of elements with cascades, plus any
// full-text rows belonging to removed file nodes.
func (s *Storage) RemoveElements(ids []int64) {
	if len(ids) == 0 {
		return
	}
	s.executeStatement("DELETE FROM file WHERE id IN " + inClauseInt(ids) + ";")
	s.executeStatement("DELETE FROM element WHERE id IN " + inClauseInt(ids) + ";")
}

// RemoveElementsWithLocationInFiles deletes every source location inside the
// given files, then deletes each referenced element that no surviving
// location keeps reachable from some other file.
func (s *Storage) RemoveElementsWithLocationInFiles(fileNodeIDs []int64) {
	if len(fileNodeIDs) == 0 {
		return
	}

	rows := s.executeQuery(
		"SELECT DISTINCT element_id FROM source_location WHERE file_node_id IN " + inClauseInt(fileNodeIDs) + ";",
	)
	if rows == nil {
		return
	}
	var elementIDs []int64
	for rows.Next() {
		var id sql.NullInt64
		if err := rows.Scan(&id); err != nil {
			continue
		}
		if id.Int64 != 0 {
			elementIDs = append(elementIDs, id.Int64)
		}
	}
	_ = rows.Close()

	s.executeStatement(
		"DELETE FROM source_location WHERE file_node_id IN " + inClauseInt(fileNodeIDs) + ";",
	)

	var orphans []int64
	for _, id := range elementIDs {
		remaining := s.executeScalar(
			"SELECT COUNT(*) FROM source_location WHERE element_id = " + strconv.FormatInt(id, 10) + ";",
		)
		if remaining == 0 {
			orphans = append(orphans, id)
		}
	}
	s.RemoveElements(orphans)
}

// RemoveErrorsInFiles deletes the diagnostics recorded against the given
// file paths.
func (s *Storage) RemoveErrorsInFiles(filePaths []string) {
	if len(filePaths) == 0 {
		return
	}
	args := make([]any, len(filePaths))
	for i, p := range filePaths {
		args[i] = p
	}
	s.executeStatement(
		"DELETE FROM error WHERE file_path IN ("+placeholders(len(filePaths))+");",
		args...,
	)
}

// Typed retrieval. Getters return value records; an absent row comes back
// with a zero id. Sentinel rows are skipped rather than returned.

const nodeSelect = "SELECT id, type, serialized_name, definition_type FROM node "

func (s *Storage) getAllNodes(filter string, args ...any) []Node {
	rows := s.executeQuery(nodeSelect+filter, args...)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var nodes []Node
	for rows.Next() {
		var (
			id, nodeType, definitionType sql.NullInt64
			serializedName               sql.NullString
		)
		if err := rows.Scan(&id, &nodeType, &serializedName, &definitionType); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 || !nodeType.Valid {
			continue
		}
		nodes = append(nodes, Node{
			ID:             id.Int64,
			Type:           NodeType(nodeType.Int64),
			SerializedName: serializedName.String,
			DefinitionType: DefinitionType(definitionType.Int64),
		})
	}
	return nodes
}

func (s *Storage) getFirstNode(filter string, args ...any) Node {
	nodes := s.getAllNodes(filter+" LIMIT 1", args...)
	if len(nodes) == 0 {
		return Node{}
	}
	return nodes[0]
}

// GetNodeByID returns the node with the given id.
func (s *Storage) GetNodeByID(id int64) Node {
	return s.getFirstNode("WHERE id = " + strconv.FormatInt(id, 10))
}

// GetNodeBySerializedName returns the node carrying the canonical name.
func (s *Storage) GetNodeBySerializedName(serializedName string) Node {
	return s.getFirstNode("WHERE serialized_name = ?", serializedName)
}

// GetNodesByIDs returns the nodes with the given ids.
func (s *Storage) GetNodesByIDs(ids []int64) []Node {
	if len(ids) == 0 {
		return nil
	}
	return s.getAllNodes("WHERE id IN " + inClauseInt(ids))
}

// GetAllNodes returns every node.
func (s *Storage) GetAllNodes() []Node {
	return s.getAllNodes("")
}

const edgeSelect = "SELECT id, type, source_node_id, target_node_id FROM edge "

func (s *Storage) getAllEdges(filter string, args ...any) []Edge {
	rows := s.executeQuery(edgeSelect+filter, args...)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var edges []Edge
	for rows.Next() {
		var id, edgeType, sourceID, targetID sql.NullInt64
		if err := rows.Scan(&id, &edgeType, &sourceID, &targetID); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 || !edgeType.Valid {
			continue
		}
		edges = append(edges, Edge{
			ID:           id.Int64,
			Type:         EdgeType(edgeType.Int64),
			SourceNodeID: sourceID.Int64,
			TargetNodeID: targetID.Int64,
		})
	}
	return edges
}

func (s *Storage) getFirstEdge(filter string, args ...any) Edge {
	edges := s.getAllEdges(filter+" LIMIT 1", args...)
	if len(edges) == 0 {
		return Edge{}
	}
	return edges[0]
}

// GetEdgeByID returns the edge with the given id.
func (s *Storage) GetEdgeByID(id int64) Edge {
	return s.getFirstEdge("WHERE id = " + strconv.FormatInt(id, 10))
}

// GetEdgesBySourceID returns the edges leaving a node.
func (s *Storage) GetEdgesBySourceID(sourceNodeID int64) []Edge {
	return s.getAllEdges("WHERE source_node_id = " + strconv.FormatInt(sourceNodeID, 10))
}

// GetEdgesByTargetID returns the edges arriving at a node.
func (s *Storage) GetEdgesByTargetID(targetNodeID int64) []Edge {
	return s.getAllEdges("WHERE target_node_id = " + strconv.FormatInt(targetNodeID, 10))
}

// GetEdgesBySourceIDs returns the edges leaving any of the given nodes.
func (s *Storage) GetEdgesBySourceIDs(sourceNodeIDs []int64) []Edge {
	if len(sourceNodeIDs) == 0 {
		return nil
	}
	return s.getAllEdges("WHERE source_node_id IN " + inClauseInt(sourceNodeIDs))
}

// GetAllEdges returns every edge.
func (s *Storage) GetAllEdges() []Edge {
	return s.getAllEdges("")
}

const fileSelect = "SELECT id, path, modification_time, content, loc FROM file "

func (s *Storage) getAllFiles(filter string, args ...any) []File {
	rows := s.executeQuery(fileSelect+filter, args...)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var files []File
	for rows.Next() {
		var (
			id, loc              sql.NullInt64
			path, mtime, content sql.NullString
		)
		if err := rows.Scan(&id, &path, &mtime, &content, &loc); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 {
			continue
		}
		file := File{
			ID:      id.Int64,
			Path:    path.String,
			Content: content.String,
			LOC:     int(loc.Int64),
		}
		if t, err := time.Parse(time.RFC3339, mtime.String); err == nil {
			file.ModificationTime = t
		}
		files = append(files, file)
	}
	return files
}

func (s *Storage) getFirstFile(filter string, args ...any) File {
	files := s.getAllFiles(filter+" LIMIT 1", args...)
	if len(files) == 0 {
		return File{}
	}
	return files[0]
}

// GetFileByID returns the file row joined to the given node id.
func (s *Storage) GetFileByID(id int64) File {
	return s.getFirstFile("WHERE id = " + strconv.FormatInt(id, 10))
}

// GetFileByPath returns the file row stored under the given path.
func (s *Storage) GetFileByPath(path string) File {
	return s.getFirstFile("WHERE path = ?", path)
}

// GetAllFiles returns every file row.
func (s *Storage) GetAllFiles() []File {
	return s.getAllFiles("")
}

const localSymbolSelect = "SELECT id, name FROM local_symbol "

func (s *Storage) getAllLocalSymbols(filter string, args ...any) []LocalSymbol {
	rows := s.executeQuery(localSymbolSelect+filter, args...)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var symbols []LocalSymbol
	for rows.Next() {
		var (
			id   sql.NullInt64
			name sql.NullString
		)
		if err := rows.Scan(&id, &name); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 {
			continue
		}
		symbols = append(symbols, LocalSymbol{ID: id.Int64, Name: name.String})
	}
	return symbols
}

// GetLocalSymbolByName returns the local symbol with the given name.
func (s *Storage) GetLocalSymbolByName(name string) LocalSymbol {
	symbols := s.getAllLocalSymbols("WHERE name = ? LIMIT 1", name)
	if len(symbols) == 0 {
		return LocalSymbol{}
	}
	return symbols[0]
}

// GetAllLocalSymbols returns every local symbol.
func (s *Storage) GetAllLocalSymbols() []LocalSymbol {
	return s.getAllLocalSymbols("")
}

const sourceLocationSelect = `SELECT id, element_id, file_node_id, start_line, start_column, end_line, end_column, type
FROM source_location `

func (s *Storage) getAllSourceLocations(filter string, args ...any) []SourceLocation {
	rows := s.executeQuery(sourceLocationSelect+filter, args...)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var locations []SourceLocation
	for rows.Next() {
		var id, elementID, fileNodeID, sl, sc, el, ec, locationType sql.NullInt64
		if err := rows.Scan(&id, &elementID, &fileNodeID, &sl, &sc, &el, &ec, &locationType); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 {
			continue
		}
		locations = append(locations, SourceLocation{
			ID:         id.Int64,
			ElementID:  elementID.Int64,
			FileNodeID: fileNodeID.Int64,
			StartLine:  int(sl.Int64),
			StartCol:   int(sc.Int64),
			EndLine:    int(el.Int64),
			EndCol:     int(ec.Int64),
			Type:       LocationType(locationType.Int64),
		})
	}
	return locations
}

// GetSourceLocationsForElementID returns the locations attached to an
// element.
func (s *Storage) GetSourceLocationsForElementID(elementID int64) []SourceLocation {
	return s.getAllSourceLocations("WHERE element_id = " + strconv.FormatInt(elementID, 10))
}

// GetSourceLocationsInFile returns the locations inside a file, ordered by
// position.
func (s *Storage) GetSourceLocationsInFile(fileNodeID int64) []SourceLocation {
	return s.getAllSourceLocations(
		"WHERE file_node_id = " + strconv.FormatInt(fileNodeID, 10) + " ORDER BY start_line, start_column",
	)
}

const commentLocationSelect = `SELECT id, file_node_id, start_line, start_column, end_line, end_column
FROM comment_location `

// GetCommentLocationsInFile returns the comment ranges recorded for a file.
func (s *Storage) GetCommentLocationsInFile(fileNodeID int64) []CommentLocation {
	rows := s.executeQuery(
		commentLocationSelect + "WHERE file_node_id = " + strconv.FormatInt(fileNodeID, 10) +
			" ORDER BY start_line, start_column",
	)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var comments []CommentLocation
	for rows.Next() {
		var id, fileID, sl, sc, el, ec sql.NullInt64
		if err := rows.Scan(&id, &fileID, &sl, &sc, &el, &ec); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 {
			continue
		}
		comments = append(comments, CommentLocation{
			ID:         id.Int64,
			FileNodeID: fileID.Int64,
			StartLine:  int(sl.Int64),
			StartCol:   int(sc.Int64),
			EndLine:    int(el.Int64),
			EndCol:     int(ec.Int64),
		})
	}
	return comments
}

// GetComponentAccessByEdgeID returns the access annotation on a member edge.
func (s *Storage) GetComponentAccessByEdgeID(edgeID int64) ComponentAccess {
	rows := s.executeQuery(
		"SELECT id, edge_id, type FROM component_access WHERE edge_id = " +
			strconv.FormatInt(edgeID, 10) + " LIMIT 1",
	)
	if rows == nil {
		return ComponentAccess{}
	}
	defer func() { _ = rows.Close() }()

	if rows.Next() {
		var id, eid, accessType sql.NullInt64
		if err := rows.Scan(&id, &eid, &accessType); err == nil && id.Int64 != 0 {
			return ComponentAccess{ID: id.Int64, EdgeID: eid.Int64, Type: AccessType(accessType.Int64)}
		}
	}
	return ComponentAccess{}
}

const errorSelect = "SELECT id, message, fatal, file_path, line_number, column_number FROM error "

// GetAllErrors returns every recorded diagnostic.
func (s *Storage) GetAllErrors() []StorageError {
	rows := s.executeQuery(errorSelect)
	if rows == nil {
		return nil
	}
	defer func() { _ = rows.Close() }()

	var errs []StorageError
	for rows.Next() {
		var (
			id, fatal, line, column sql.NullInt64
			message, filePath       sql.NullString
		)
		if err := rows.Scan(&id, &message, &fatal, &filePath, &line, &column); err != nil {
			log.Printf("storage: %v", err)
			continue
		}
		if id.Int64 == 0 {
			continue
		}
		errs = append(errs, StorageError{
			ID:       id.Int64,
			Message:  message.String,
			Fatal:    fatal.Int64 != 0,
			FilePath: filePath.String,
			Line:     int(line.Int64),
			Column:   int(column.Int64),
		})
	}
	return errs
}

// Aggregates.

// GetNodeCount returns the number of nodes.
func (s *Storage) GetNodeCount() int {
	return s.executeScalar("SELECT COUNT(*) FROM node;")
}

// GetEdgeCount returns the number of edges.
func (s *Storage) GetEdgeCount() int {
	return s.executeScalar("SELECT COUNT(*) FROM edge;")
}

// GetFileCount returns the number of indexed files.
func (s *Storage) GetFileCount() int {
	return s.executeScalar("SELECT COUNT(*) FROM file;")
}

// GetFileLOCCount returns the summed line count over all files.
func (s *Storage) GetFileLOCCount() int {
	return s.executeScalar("SELECT SUM(loc) FROM file;")
}

// GetSourceLocationCount returns the number of source locations.
func (s *Storage) GetSourceLocationCount() int {
	return s.executeScalar("SELECT COUNT(*) FROM source_location;")
}

// GetErrorCount returns the diagnostic counts split into total and fatal.
func (s *Storage) GetErrorCount() ErrorCountInfo {
	return ErrorCountInfo{
		Total: s.executeScalar("SELECT COUNT(*) FROM error;"),
		Fatal: s.executeScalar("SELECT COUNT(*) FROM error WHERE fatal = 1;"),
	}
}
