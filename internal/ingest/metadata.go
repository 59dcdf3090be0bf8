package ingest

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"ratsdok/internal/domain"
)

// folderMetadata mirrors the metadata.json an OParl scraper leaves in each
// paper or meeting folder. Only the fields the payload needs are read.
type folderMetadata struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Date            string       `json:"date"`
	Start           string       `json:"start"`
	Reference       string       `json:"reference"`
	PaperType       string       `json:"paperType"`
	MainFile        *fileRef     `json:"mainFile"`
	AuxiliaryFile   []fileRef    `json:"auxiliaryFile"`
	Invitation      *fileRef     `json:"invitation"`
	ResultsProtocol *fileRef     `json:"resultsProtocol"`
	AgendaItem      []agendaItem `json:"agendaItem"`
}

type agendaItem struct {
	AuxiliaryFile []fileRef `json:"auxiliaryFile"`
}

type fileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessURL   string `json:"accessUrl"`
	DownloadURL string `json:"downloadUrl"`
}

// FileObject is one referenced PDF of a folder, with its role in the entity.
type FileObject struct {
	FileType    string
	FileID      string
	Name        string
	AccessURL   string
	DownloadURL string
}

// LoadFolderMetadata reads metadata.json from dir. A missing or unreadable
// file yields empty metadata for the entity type derived from the path;
// documents still index, just without entity payload fields.
func LoadFolderMetadata(dir string) (domain.EntityMetadata, []FileObject) {
	entityType := entityTypeFromPath(dir)

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return domain.EntityMetadata{Source: "oparl", Type: entityType}, nil
	}
	var meta folderMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.EntityMetadata{Source: "oparl", Type: entityType}, nil
	}

	entity := domain.EntityMetadata{
		Source: "oparl",
		Type:   entityType,
		ID:     meta.ID,
		Name:   meta.Name,
		Date:   meta.Date,
	}
	if entity.Date == "" {
		entity.Date = meta.Start
	}
	if entityType == domain.EntityPaper {
		entity.PaperReference = meta.Reference
		entity.PaperType = meta.PaperType
	}

	var files []FileObject
	switch entityType {
	case domain.EntityPaper:
		files = paperFiles(meta)
	case domain.EntityMeeting:
		files = meetingFiles(meta)
	}
	return entity, files
}

func entityTypeFromPath(dir string) domain.EntityType {
	norm := filepath.ToSlash(dir)
	switch {
	case strings.Contains(norm, "/papers/") || strings.HasSuffix(norm, "/papers"):
		return domain.EntityPaper
	case strings.Contains(norm, "/meetings/") || strings.HasSuffix(norm, "/meetings"):
		return domain.EntityMeeting
	default:
		return domain.EntityUnknown
	}
}

func paperFiles(meta folderMetadata) []FileObject {
	var files []FileObject
	if f := meta.MainFile; f != nil && f.AccessURL != "" {
		files = append(files, toFileObject("mainFile", *f))
	}
	for _, f := range meta.AuxiliaryFile {
		if f.AccessURL != "" {
			files = append(files, toFileObject("auxiliaryFile", f))
		}
	}
	return files
}

func meetingFiles(meta folderMetadata) []FileObject {
	var files []FileObject
	if f := meta.Invitation; f != nil && f.AccessURL != "" {
		files = append(files, toFileObject("invitation", *f))
	}
	if f := meta.ResultsProtocol; f != nil && f.AccessURL != "" {
		files = append(files, toFileObject("resultsProtocol", *f))
	}
	for _, item := range meta.AgendaItem {
		for _, f := range item.AuxiliaryFile {
			if f.AccessURL != "" {
				files = append(files, toFileObject("auxiliaryFile", f))
			}
		}
	}
	return files
}

func toFileObject(fileType string, f fileRef) FileObject {
	return FileObject{
		FileType:    fileType,
		FileID:      f.ID,
		Name:        f.Name,
		AccessURL:   f.AccessURL,
		DownloadURL: f.DownloadURL,
	}
}

// FilenameFromURL extracts the PDF filename from an access or download URL,
// percent-decoded and sanitized.
func FilenameFromURL(rawURL string) string {
	parts := strings.Split(rawURL, "/")
	last := parts[len(parts)-1]
	if decoded, err := url.PathUnescape(last); err == nil {
		last = decoded
	}
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_")
	return replacer.Replace(last)
}
