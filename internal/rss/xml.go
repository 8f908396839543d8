package rss

import (
	"encoding/xml"
	"time"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel channelXML `xml:"channel"`
}

type channelXML struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []itemXML `xml:"item"`
}

type itemXML struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        guidXML `xml:"guid"`
	Description string  `xml:"description,omitempty"`
	PubDate     string  `xml:"pubDate"`
}

type guidXML struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Render はFeedをRSS 2.0のXMLにエンコードする。先頭にXML宣言を付ける。
// アイテムの順序はfeed.Itemsの順序をそのまま使う。
func Render(feed Feed) ([]byte, error) {
	items := make([]itemXML, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, itemXML{
			Title:       it.Title,
			Link:        it.Link,
			GUID:        guidXML{IsPermaLink: false, Value: it.GUID},
			Description: it.Description,
			PubDate:     it.PubDate.UTC().Format(time.RFC1123Z),
		})
	}

	out := rssXML{
		Version: "2.0",
		Channel: channelXML{
			Title:       feed.Title,
			Link:        feed.Link,
			Description: feed.Description,
			Items:       items,
		},
	}
	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
