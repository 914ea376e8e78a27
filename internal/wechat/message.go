package wechat

import (
	"encoding/xml"
	"fmt"
	"time"
)

// InboundMessage is the XML envelope WeChat POSTs to the webhook.
type InboundMessage struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   string   `xml:"ToUserName"`
	FromUserName string   `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      string   `xml:"MsgType"`
	Content      string   `xml:"Content"`
	Event        string   `xml:"Event"`
	MsgID        int64    `xml:"MsgId"`
}

type textReply struct {
	XMLName      xml.Name `xml:"xml"`
	ToUserName   cdata    `xml:"ToUserName"`
	FromUserName cdata    `xml:"FromUserName"`
	CreateTime   int64    `xml:"CreateTime"`
	MsgType      cdata    `xml:"MsgType"`
	Content      cdata    `xml:"Content"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

func ParseMessage(payload []byte) (InboundMessage, error) {
	var message InboundMessage
	if err := xml.Unmarshal(payload, &message); err != nil {
		return InboundMessage{}, fmt.Errorf("parse wechat message: %w", err)
	}
	return message, nil
}

// TextReply renders the XML text response envelope, swapping sender and
// receiver relative to the inbound message.
func TextReply(inbound InboundMessage, content string) ([]byte, error) {
	reply := textReply{
		ToUserName:   cdata{inbound.FromUserName},
		FromUserName: cdata{inbound.ToUserName},
		CreateTime:   time.Now().Unix(),
		MsgType:      cdata{"text"},
		Content:      cdata{content},
	}
	payload, err := xml.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("render wechat reply: %w", err)
	}
	return payload, nil
}
