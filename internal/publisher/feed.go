package publisher

import (
	"encoding/xml"
	"fmt"
	"time"

	"morsel/internal/model"
)

const (
	itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	atomNS   = "http://www.w3.org/2005/Atom"
)

// FeedInfo is the channel-level metadata of the podcast.
type FeedInfo struct {
	Title       string
	Description string
	Author      string
	Language    string
	ImageURL    string
	SiteURL     string
	FeedURL     string
}

type rssDoc struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ItunesNS string     `xml:"xmlns:itunes,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title          string       `xml:"title"`
	Link           string       `xml:"link,omitempty"`
	Description    string       `xml:"description"`
	Language       string       `xml:"language"`
	Generator      string       `xml:"generator"`
	LastBuildDate  string       `xml:"lastBuildDate"`
	ItunesAuthor   string       `xml:"itunes:author"`
	ItunesExplicit string       `xml:"itunes:explicit"`
	ItunesImage    *itunesImage `xml:"itunes:image,omitempty"`
	AtomLink       atomLink     `xml:"atom:link"`
	Items          []rssItem    `xml:"item"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title          string       `xml:"title"`
	Description    string       `xml:"description"`
	PubDate        string       `xml:"pubDate"`
	GUID           rssGUID      `xml:"guid"`
	Enclosure      rssEnclosure `xml:"enclosure"`
	ItunesDuration string       `xml:"itunes:duration"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// RenderFeed serializes episodes as an RSS 2.0 podcast feed, newest first.
// Each episode becomes exactly one item.
func RenderFeed(info FeedInfo, episodes []model.Episode, built time.Time) ([]byte, error) {
	doc := rssDoc{
		Version:  "2.0",
		ItunesNS: itunesNS,
		AtomNS:   atomNS,
		Channel: rssChannel{
			Title:          info.Title,
			Link:           info.SiteURL,
			Description:    info.Description,
			Language:       info.Language,
			Generator:      "morsel",
			LastBuildDate:  built.UTC().Format(time.RFC1123Z),
			ItunesAuthor:   info.Author,
			ItunesExplicit: "false",
			AtomLink: atomLink{
				Href: info.FeedURL,
				Rel:  "self",
				Type: "application/rss+xml",
			},
		},
	}
	if info.ImageURL != "" {
		doc.Channel.ItunesImage = &itunesImage{Href: info.ImageURL}
	}

	for _, ep := range NewestFirst(episodes) {
		day, err := ep.Day()
		if err != nil {
			return nil, err
		}
		guid := ep.GUID
		if guid == "" {
			guid = EpisodeGUID(ep.AudioURL)
		}
		duration := ep.Duration
		if duration == "" {
			duration = "0"
		}
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       ep.Title,
			Description: ep.ShowNotes,
			PubDate:     day.Format(time.RFC1123Z),
			GUID:        rssGUID{IsPermaLink: "false", Value: guid},
			Enclosure: rssEnclosure{
				URL:    ep.AudioURL,
				Length: ep.AudioSize,
				Type:   "audio/mpeg",
			},
			ItunesDuration: duration,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render feed: %w", err)
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}
